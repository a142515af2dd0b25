package main

import (
	"log"
	"os"
	"time"

	"secondcycle_go/config"
	"secondcycle_go/middleware"
	"secondcycle_go/routes"
	"secondcycle_go/services"
	"secondcycle_go/websocket"

	"github.com/joho/godotenv"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// 设置环境
	env := os.Getenv("GIN_MODE")
	if env == "" {
		os.Setenv("GIN_MODE", "debug")
	}

	// 初始化日志系统
	if err := middleware.InitLogger(env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer middleware.FlushLogger()

	// 初始化数据库
	if err := config.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer config.CloseDatabase()

	// 初始化Redis
	if err := config.InitializeRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer config.CloseRedis()

	// 初始化WebSocket
	if err := websocket.InitWebSocket(); err != nil {
		log.Fatalf("Failed to initialize WebSocket: %v", err)
	}
	defer websocket.CloseWebSocket()

	// 启动过期发布清理任务
	sweeper := services.NewSweeperService(config.GetEnvDuration("LISTING_SWEEP_INTERVAL", 5*time.Minute))
	sweeper.Start()
	defer sweeper.Stop()

	// 设置路由
	r := config.SetupRouter()
	routes.SetupRoutes(r)

	if err := config.StartServer(r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
