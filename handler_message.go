package community_chat

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lusotown/community-chat/response"
	"github.com/lusotown/community-chat/service"
)

// -------------------- 消息（Message）相关接口 --------------------

// GinHandleListMessages 房间消息列表（游标分页）
// @Summary 房间消息列表
// @Description 按时间正序返回最近 limit 条；before 传 RFC3339 时间戳做上界游标
// @Tags 消息
// @Produce json
// @Param id path int true "房间 ID"
// @Param limit query int false "条数，默认 50"
// @Param before query string false "上界游标（RFC3339，开区间）"
// @Success 200 {object} response.Response{data=[]service.MessageListItemDTO} "消息列表"
// @Failure 400 {object} response.Response "请求错误"
// @Router /rooms/{id}/messages [get]
func (c *ChatEngine) GinHandleListMessages(ctx *gin.Context) {
	roomID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, "invalid room id"))
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))

	var before *time.Time
	if raw := ctx.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, "invalid before cursor"))
			return
		}
		before = &t
	}

	msgs, err := c.MsgService.GetRoomMessages(roomID, limit, before)
	if err != nil {
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(msgs))
}

type SendMessageReq struct {
	Content     string               `json:"content" binding:"required"`
	Type        string               `json:"type"`
	ReplyTo     *uint64              `json:"reply_to"`
	Attachments []service.Attachment `json:"attachments"`
}

// GinHandleSendMessage 发送消息
// @Summary 发送消息
// @Description 发送者必须是房间活跃成员；@name 提及自动抽取
// @Tags 消息
// @Accept json
// @Produce json
// @Param id path int true "房间 ID"
// @Param req body SendMessageReq true "消息内容"
// @Success 200 {object} response.Response{data=service.MessageListItemDTO} "已保存的消息"
// @Failure 400 {object} response.Response "无权发言"
// @Router /rooms/{id}/messages [post]
func (c *ChatEngine) GinHandleSendMessage(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, response.Error(response.CodeNotAuthorized, "login required"))
		return
	}
	roomID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, "invalid room id"))
		return
	}

	var req SendMessageReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, err.Error()))
		return
	}

	msg, err := c.MsgService.SendMessage(roomID, userID, req.Content, req.Type, req.ReplyTo, req.Attachments)
	if err != nil {
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(msg))
}

type EditMessageReq struct {
	Content string `json:"content" binding:"required"`
}

// GinHandleEditMessage 编辑消息（只有作者可以）
// @Summary 编辑消息
// @Tags 消息
// @Accept json
// @Produce json
// @Param id path int true "消息 ID"
// @Param req body EditMessageReq true "新内容"
// @Success 200 {object} response.Response "编辑成功"
// @Failure 400 {object} response.Response "不是作者/消息不存在"
// @Router /messages/{id} [put]
func (c *ChatEngine) GinHandleEditMessage(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, response.Error(response.CodeNotAuthorized, "login required"))
		return
	}
	messageID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, "invalid message id"))
		return
	}

	var req EditMessageReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, err.Error()))
		return
	}

	if err := c.MsgService.EditMessage(messageID, userID, req.Content); err != nil {
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil, "edited"))
}

// GinHandleDeleteMessage 删除消息（软删，只有作者可以；内容替换为占位符）
// @Summary 删除消息
// @Tags 消息
// @Produce json
// @Param id path int true "消息 ID"
// @Success 200 {object} response.Response "删除成功"
// @Failure 400 {object} response.Response "不是作者/消息不存在"
// @Router /messages/{id} [delete]
func (c *ChatEngine) GinHandleDeleteMessage(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, response.Error(response.CodeNotAuthorized, "login required"))
		return
	}
	messageID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, "invalid message id"))
		return
	}

	if err := c.MsgService.DeleteMessage(messageID, userID); err != nil {
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil, "deleted"))
}

type ReactionReq struct {
	Emoji string `json:"emoji" binding:"required"`
}

// GinHandleAddReaction 添加回应（同一 (消息, 用户, emoji) 重复添加幂等）
// @Summary 添加回应
// @Tags 消息
// @Accept json
// @Produce json
// @Param id path int true "消息 ID"
// @Param req body ReactionReq true "emoji"
// @Success 200 {object} response.Response "添加成功"
// @Failure 400 {object} response.Response "消息不存在"
// @Router /messages/{id}/reactions [post]
func (c *ChatEngine) GinHandleAddReaction(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, response.Error(response.CodeNotAuthorized, "login required"))
		return
	}
	messageID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, "invalid message id"))
		return
	}

	var req ReactionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, err.Error()))
		return
	}

	if err := c.MsgService.AddReaction(messageID, userID, req.Emoji); err != nil {
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil, "reacted"))
}

// GinHandleRemoveReaction 移除回应（删不存在的也算成功）
// @Summary 移除回应
// @Tags 消息
// @Accept json
// @Produce json
// @Param id path int true "消息 ID"
// @Param req body ReactionReq true "emoji"
// @Success 200 {object} response.Response "移除成功"
// @Failure 400 {object} response.Response "消息不存在"
// @Router /messages/{id}/reactions [delete]
func (c *ChatEngine) GinHandleRemoveReaction(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, response.Error(response.CodeNotAuthorized, "login required"))
		return
	}
	messageID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, "invalid message id"))
		return
	}

	var req ReactionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, err.Error()))
		return
	}

	if err := c.MsgService.RemoveReaction(messageID, userID, req.Emoji); err != nil {
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil, "removed"))
}

// GinHandlePinMessage 置顶消息（moderator/admin）
// @Summary 置顶消息
// @Tags 消息
// @Produce json
// @Param id path int true "消息 ID"
// @Success 200 {object} response.Response "置顶成功"
// @Failure 400 {object} response.Response "无权操作"
// @Router /messages/{id}/pin [post]
func (c *ChatEngine) GinHandlePinMessage(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, response.Error(response.CodeNotAuthorized, "login required"))
		return
	}
	messageID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, "invalid message id"))
		return
	}

	if err := c.MsgService.PinMessage(messageID, userID); err != nil {
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil, "pinned"))
}

// GinHandleUnpinMessage 取消置顶（moderator/admin）
// @Summary 取消置顶
// @Tags 消息
// @Produce json
// @Param id path int true "消息 ID"
// @Success 200 {object} response.Response "取消成功"
// @Failure 400 {object} response.Response "无权操作"
// @Router /messages/{id}/unpin [post]
func (c *ChatEngine) GinHandleUnpinMessage(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, response.Error(response.CodeNotAuthorized, "login required"))
		return
	}
	messageID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, "invalid message id"))
		return
	}

	if err := c.MsgService.UnpinMessage(messageID, userID); err != nil {
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil, "unpinned"))
}
