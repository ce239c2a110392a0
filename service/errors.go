package service

import "errors"

// 对外的封闭错误集合。handler 层用 errors.Is 映射业务码，
// 其余错误一律当作底层存储故障（记日志 + 原样上抛，绝不吞掉）。
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomInactive    = errors.New("room is no longer active")
	ErrAlreadyMember   = errors.New("already a member of this room")
	ErrRoomFull        = errors.New("room is at capacity")
	ErrNotMember       = errors.New("not a member of this room")
	ErrNotAuthorized   = errors.New("not authorized")
	ErrMessageNotFound = errors.New("message not found")
)
