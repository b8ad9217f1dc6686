package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"hydro-system/algo"
	"hydro-system/db"
	"hydro-system/handler"
)

func main() {
	fmt.Println("=== 欢迎使用 VV Hydro - 水文站点匹配校正系统 ===")

	// 1. 初始化数据库
	// 连接 PostgreSQL，自动迁移表结构
	// 如果是第一次运行，会自动将 hydro_data.json 的数据导入数据库
	db.InitDB()

	// 2. 加载站点与河段数据 (从数据库加载)
	fmt.Println("正在从数据库加载站点与河段数据...")
	data, err := algo.LoadFromDB()
	if err != nil {
		log.Fatalf("从数据库加载数据失败: %v", err)
	}
	fmt.Printf("数据加载成功! 站点数: %d, 河段数: %d\n", len(data.Sites), len(data.Streams))

	// 3. 将数据集传递给 handler (用于匹配与查询接口)
	handler.Data = data

	// 4. 初始化 Gin 引擎
	r := gin.Default()

	// 5. 配置路由
	setupRoutes(r)

	// 6. 启动服务器
	addr := ":8080"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}
	fmt.Println("\n服务器启动中...")
	fmt.Println("访问地址: http://localhost" + addr)
	fmt.Println("API 文档:")
	fmt.Println("  - POST   /api/login          - 用户登录")
	fmt.Println("  - POST   /api/register       - 用户注册")
	fmt.Println("  - POST   /api/match/run      - 站点-河段匹配与吸附")
	fmt.Println("  - GET    /api/sites          - 获取所有站点")
	fmt.Println("  - GET    /api/sites/:id      - 获取指定站点")
	fmt.Println("  - GET    /api/sites/search   - 搜索站点")
	fmt.Println("  - GET    /api/streams        - 获取所有河段概要")
	fmt.Println("\n按 Ctrl+C 退出")

	if err := r.Run(addr); err != nil {
		log.Fatalf("服务器启动失败: %v", err)
	}
}

// setupRoutes 配置路由
func setupRoutes(r *gin.Engine) {
	// CORS 跨域中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// 健康检查
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
			"status":  "ok",
		})
	})

	// API 路由组
	api := r.Group("/api")
	{
		// 公开接口 (无需认证)
		api.POST("/login", handler.Login)
		api.POST("/register", handler.Register)

		// 匹配与数据接口
		api.POST("/match/run", handler.RunMatch)
		api.GET("/sites", handler.GetSites)
		api.GET("/sites/search", handler.SearchSites)
		api.GET("/sites/:id", handler.GetSiteByID)
		api.GET("/streams", handler.GetStreams)

		// 如果将来需要认证，可以解开下面的注释
		// authorized := api.Group("/")
		// authorized.Use(handler.AuthMiddleware())
		// {
		//     authorized.POST("/match/run", handler.RunMatch)
		// }
	}
}
