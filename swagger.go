package community_chat

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterSwagger 挂载 swagger UI 到 /swagger/*any。
// 文档由宿主应用生成：在仓库根目录执行 `swag init`，然后 import 生成的 docs 包。
func RegisterSwagger(r *gin.Engine) {
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// RegisterSwaggerWithGroup 挂载到路由组，方便和业务接口共用前缀。
func RegisterSwaggerWithGroup(g *gin.RouterGroup) {
	g.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
