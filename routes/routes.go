package routes

import (
	"secondcycle_go/controllers"
	"secondcycle_go/middleware"
	"secondcycle_go/models"
	"secondcycle_go/websocket"

	"github.com/gin-gonic/gin"
)

// SetupRoutes 设置路由
func SetupRoutes(r *gin.Engine) {
	// 应用全局中间件
	r.Use(middleware.CORS())
	r.Use(middleware.Logger())

	api := r.Group("/api/v1")
	{
		// ====== 发布路由 ======
		listingController := controllers.NewListingController()
		listings := api.Group("/listings")
		{
			listings.GET("", listingController.GetListings)
			listings.GET("/my", middleware.AuthMiddleware(), listingController.GetMyListings)
			listings.GET("/:id", listingController.GetListing)
			listings.POST("", middleware.AuthMiddleware(), listingController.CreateListing)
			listings.PUT("/:id/status", middleware.AuthMiddleware(), listingController.ChangeStatus)
		}

		// ====== 管理员审核路由 ======
		adminController := controllers.NewAdminListingController()
		admin := api.Group("/admin", middleware.AuthMiddleware(), middleware.RequireRoles(models.RoleAdmin))
		{
			admin.GET("/listings/pending", adminController.GetPendingListings)
			admin.PUT("/listings/:id/approve", adminController.ApproveListing)
			admin.PUT("/listings/:id/reject", adminController.RejectListing)
		}

		// ====== 购物车路由 ======
		cartController := controllers.NewCartController()
		cart := api.Group("/cart", middleware.AuthMiddleware())
		{
			cart.GET("", cartController.GetMyCart)
			cart.DELETE("", cartController.ClearCart)
			cart.POST("/items", cartController.AddToCart)
			cart.PUT("/items/:id", cartController.UpdateCartItem)
			cart.DELETE("/items/:id", cartController.RemoveFromCart)
		}

		// ====== 订单路由 ======
		orderController := controllers.NewOrderController()
		orders := api.Group("/orders", middleware.AuthMiddleware())
		{
			orders.POST("", orderController.CreateOrder)
			orders.POST("/checkout", orderController.Checkout)
			orders.GET("/my", orderController.GetMyOrders)
			orders.GET("/seller", orderController.GetSellerOrders)
			orders.GET("/:id", orderController.GetOrder)
			orders.PUT("/:id/confirm", orderController.ConfirmOrder)
			orders.PUT("/:id/cancel", orderController.CancelOrder)
			orders.PUT("/:id/complete", orderController.CompleteOrder)
		}

		// ====== 支付路由 ======
		paymentController := controllers.NewPaymentController()
		payments := api.Group("/payments")
		{
			// 回调来自网关，靠签名而不是JWT认证
			payments.POST("/webhook", paymentController.HandleWebhook)
			payments.POST("/link", middleware.AuthMiddleware(), paymentController.CreatePaymentLink)
			payments.GET("/:orderCode", middleware.AuthMiddleware(), paymentController.GetPaymentInfo)
			payments.POST("/:orderCode/cancel", middleware.AuthMiddleware(), paymentController.CancelPaymentLink)
		}

		// ====== 通知路由 ======
		notificationController := controllers.NewNotificationController()
		notifications := api.Group("/notifications", middleware.AuthMiddleware())
		{
			notifications.GET("", notificationController.GetMyNotifications)
			notifications.PUT("/:id/read", notificationController.MarkAsRead)
		}
	}

	// ====== WebSocket 通知推送 ======
	r.GET("/ws", middleware.AuthMiddleware(), websocket.HandleConnection)
}
