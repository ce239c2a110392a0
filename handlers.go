package community_chat

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lusotown/community-chat/response"
	"github.com/lusotown/community-chat/service"
)

// 鉴权由宿主应用负责：它的中间件在 gin context 里放好 user_id。
// 这是本 SDK 消费"当前用户身份"的唯一入口。
const ctxUserIDKey = "user_id"

func currentUserID(ctx *gin.Context) (uint64, bool) {
	v, ok := ctx.Get(ctxUserIDKey)
	if !ok {
		return 0, false
	}
	switch id := v.(type) {
	case uint64:
		return id, id > 0
	case int64:
		return uint64(id), id > 0
	case int:
		return uint64(id), id > 0
	}
	return 0, false
}

// businessCode 把服务层错误映射为业务码。不认识的错误一律按存储故障处理：
// 记日志 + 内部错误码，绝不包装成假成功。
func businessCode(err error) int {
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		return response.CodeRoomNotFound
	case errors.Is(err, service.ErrRoomInactive):
		return response.CodeRoomInactive
	case errors.Is(err, service.ErrAlreadyMember):
		return response.CodeAlreadyMember
	case errors.Is(err, service.ErrRoomFull):
		return response.CodeRoomFull
	case errors.Is(err, service.ErrNotMember):
		return response.CodeNotMember
	case errors.Is(err, service.ErrNotAuthorized):
		return response.CodeNotAuthorized
	case errors.Is(err, service.ErrMessageNotFound):
		return response.CodeMessageNotFound
	}
	return response.CodeInternalError
}

func respondErr(ctx *gin.Context, err error) {
	code := businessCode(err)
	if code == response.CodeInternalError {
		log.Printf("%s %s: %v", ctx.Request.Method, ctx.FullPath(), err)
		ctx.JSON(http.StatusOK, response.Error(code, "internal error"))
		return
	}
	ctx.JSON(http.StatusOK, response.Error(code, err.Error()))
}

// RegisterRoutes 把全部 HTTP 接口挂到一个路由组上。
// 宿主应用也可以不用它，自己按需取 GinHandleXxx 注册。
func (c *ChatEngine) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/rooms", c.GinHandleListRooms)
	g.POST("/rooms", c.GinHandleCreateRoom)
	g.GET("/rooms/:id", c.GinHandleGetRoom)
	g.POST("/rooms/:id/join", c.GinHandleJoinRoom)
	g.POST("/rooms/:id/leave", c.GinHandleLeaveRoom)

	g.GET("/rooms/:id/messages", c.GinHandleListMessages)
	g.POST("/rooms/:id/messages", c.GinHandleSendMessage)
	g.PUT("/messages/:id", c.GinHandleEditMessage)
	g.DELETE("/messages/:id", c.GinHandleDeleteMessage)
	g.POST("/messages/:id/reactions", c.GinHandleAddReaction)
	g.DELETE("/messages/:id/reactions", c.GinHandleRemoveReaction)
	g.POST("/messages/:id/pin", c.GinHandlePinMessage)
	g.POST("/messages/:id/unpin", c.GinHandleUnpinMessage)

	g.POST("/rooms/:id/typing", c.GinHandleUpdateTyping)
	g.GET("/rooms/:id/typing", c.GinHandleFetchTyping)
	g.GET("/rooms/:id/presence", c.GinHandleFetchPresence)
	g.POST("/presence", c.GinHandleUpdatePresence)
}
