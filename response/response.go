package response

// Response 统一响应结构
type Response struct {
	Code int         `json:"code" example:"0"`                    // 业务状态码
	Msg  string      `json:"msg" example:"success"`               // 提示消息
	Data interface{} `json:"data,omitempty" swaggertype:"object"` // 响应数据
}

// 业务状态码定义
// 使用说明：
// - 中间件层：使用 HTTP 状态码（401/403/500）
// - 业务层：HTTP 200 + 业务状态码
const (
	CodeSuccess    = 0     // 成功
	CodeParamError = 10001 // 参数错误

	CodeRoomNotFound    = 20001 // 房间不存在
	CodeRoomInactive    = 20002 // 房间已停用
	CodeAlreadyMember   = 20003 // 已在房间内
	CodeRoomFull        = 20004 // 房间满员
	CodeNotMember       = 20005 // 不是房间成员
	CodeNotAuthorized   = 20006 // 无权操作
	CodeMessageNotFound = 20007 // 消息不存在

	CodeInternalError = 99999 // 内部错误
)

// Success 成功响应
func Success(data interface{}, args ...string) *Response {
	msg := "success"
	for _, arg := range args {
		msg = arg
	}
	return &Response{
		Code: CodeSuccess,
		Msg:  msg,
		Data: data,
	}
}

// Error 错误响应
func Error(code int, msg string) *Response {
	return &Response{
		Code: code,
		Msg:  msg,
	}
}
