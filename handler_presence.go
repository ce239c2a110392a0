package community_chat

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lusotown/community-chat/response"
)

// -------------------- 在线/输入状态（Presence）相关接口 --------------------

type UpdateTypingReq struct {
	IsTyping bool `json:"is_typing"`
}

// GinHandleUpdateTyping 更新输入状态
// @Summary 更新输入状态
// @Description (room, user) 上的 upsert；展示侧只认 30 秒内的记录
// @Tags 在线状态
// @Accept json
// @Produce json
// @Param id path int true "房间 ID"
// @Param req body UpdateTypingReq true "是否正在输入"
// @Success 200 {object} response.Response "更新成功"
// @Failure 400 {object} response.Response "请求错误"
// @Router /rooms/{id}/typing [post]
func (c *ChatEngine) GinHandleUpdateTyping(ctx *gin.Context) {
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

	var req UpdateTypingReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, err.Error()))
		return
	}

	if err := c.PresenceService.UpdateTyping(roomID, userID, req.IsTyping); err != nil {
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil))
}

// GinHandleFetchTyping 房间内正在输入的人
// @Summary 房间内正在输入的人
// @Tags 在线状态
// @Produce json
// @Param id path int true "房间 ID"
// @Success 200 {object} response.Response{data=[]service.TypingIndicatorDTO} "输入中列表"
// @Failure 400 {object} response.Response "请求错误"
// @Router /rooms/{id}/typing [get]
func (c *ChatEngine) GinHandleFetchTyping(ctx *gin.Context) {
	roomID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, "invalid room id"))
		return
	}

	rows, err := c.PresenceService.FetchTyping(roomID)
	if err != nil {
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(rows))
}

// GinHandleFetchPresence 房间活跃成员的在线状态
// @Summary 房间活跃成员的在线状态
// @Tags 在线状态
// @Produce json
// @Param id path int true "房间 ID"
// @Success 200 {object} response.Response{data=[]service.PresenceDTO} "在线状态列表"
// @Failure 400 {object} response.Response "请求错误"
// @Router /rooms/{id}/presence [get]
func (c *ChatEngine) GinHandleFetchPresence(ctx *gin.Context) {
	roomID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, "invalid room id"))
		return
	}

	rows, err := c.PresenceService.FetchPresence(roomID)
	if err != nil {
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(rows))
}

type UpdatePresenceReq struct {
	IsOnline bool   `json:"is_online"`
	Status   string `json:"status"` // online/away/busy/offline，不认识的按 online 处理
}

// GinHandleUpdatePresence 更新自己的全局在线状态
// @Summary 更新在线状态
// @Tags 在线状态
// @Accept json
// @Produce json
// @Param req body UpdatePresenceReq true "在线状态"
// @Success 200 {object} response.Response "更新成功"
// @Failure 400 {object} response.Response "请求错误"
// @Router /presence [post]
func (c *ChatEngine) GinHandleUpdatePresence(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, response.Error(response.CodeNotAuthorized, "login required"))
		return
	}

	var req UpdatePresenceReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, err.Error()))
		return
	}

	if err := c.PresenceService.UpdatePresence(userID, req.IsOnline, req.Status); err != nil {
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil))
}
