package community_chat

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lusotown/community-chat/response"
	"github.com/lusotown/community-chat/service"
)

// -------------------- 房间（Room）相关接口 --------------------

// GinHandleListRooms 房间列表
// @Summary 房间列表
// @Description 列出所有活跃房间；已登录时标记已加入的房间并排在前面
// @Tags 房间
// @Produce json
// @Success 200 {object} response.Response{data=[]service.RoomDTO} "房间列表"
// @Failure 500 {object} response.Response "服务器错误"
// @Router /rooms [get]
func (c *ChatEngine) GinHandleListRooms(ctx *gin.Context) {
	userID, _ := currentUserID(ctx)
	rooms, err := c.RoomService.ListRooms(userID)
	if err != nil {
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(rooms))
}

// GinHandleGetRoom 房间详情
// @Summary 房间详情
// @Description 房间信息 + 活跃成员（带资料投影）+ 版主列表
// @Tags 房间
// @Produce json
// @Param id path int true "房间 ID"
// @Success 200 {object} response.Response{data=service.RoomDetailDTO} "房间详情"
// @Failure 400 {object} response.Response "请求错误"
// @Router /rooms/{id} [get]
func (c *ChatEngine) GinHandleGetRoom(ctx *gin.Context) {
	roomID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, "invalid room id"))
		return
	}
	viewerID, _ := currentUserID(ctx)

	room, err := c.RoomService.GetRoom(roomID, viewerID)
	if err != nil {
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(room))
}

type CreateRoomReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsPrivate   bool   `json:"is_private"`
	MaxMembers  *int   `json:"max_members"`
	Rules       string `json:"rules"`
	ImageURL    string `json:"image_url"`
}

// GinHandleCreateRoom 创建房间
// @Summary 创建房间
// @Description 创建房间并把创建者设为 admin 成员
// @Tags 房间
// @Accept json
// @Produce json
// @Param req body CreateRoomReq true "创建参数"
// @Success 200 {object} response.Response{data=service.RoomDTO} "房间信息"
// @Failure 400 {object} response.Response "请求错误"
// @Router /rooms [post]
func (c *ChatEngine) GinHandleCreateRoom(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, response.Error(response.CodeNotAuthorized, "login required"))
		return
	}

	var req CreateRoomReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, err.Error()))
		return
	}

	room, err := c.RoomService.CreateRoom(service.CreateRoomSpec{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		IsPrivate:   req.IsPrivate,
		MaxMembers:  req.MaxMembers,
		Rules:       req.Rules,
		ImageURL:    req.ImageURL,
	}, userID)
	if err != nil {
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(room))
}

// GinHandleJoinRoom 加入房间
// @Summary 加入房间
// @Tags 房间
// @Produce json
// @Param id path int true "房间 ID"
// @Success 200 {object} response.Response "加入成功"
// @Failure 400 {object} response.Response "房间不存在/已加入/满员"
// @Router /rooms/{id}/join [post]
func (c *ChatEngine) GinHandleJoinRoom(ctx *gin.Context) {
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

	if err := c.RoomService.JoinRoom(roomID, userID); err != nil {
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil, "joined"))
}

// GinHandleLeaveRoom 退出房间
// @Summary 退出房间
// @Tags 房间
// @Produce json
// @Param id path int true "房间 ID"
// @Success 200 {object} response.Response "退出成功"
// @Failure 400 {object} response.Response "不是成员"
// @Router /rooms/{id}/leave [post]
func (c *ChatEngine) GinHandleLeaveRoom(ctx *gin.Context) {
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

	if err := c.RoomService.LeaveRoom(roomID, userID); err != nil {
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil, "left"))
}
