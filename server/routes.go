package server

import (
	"github.com/labstack/echo/v4"
)

func (s *Server) SetupRoutes(authMiddleware, adminMiddleware, giftLimit echo.MiddlewareFunc) {
	e := s.Echo
	api := e.Group("/api/v1")

	// Auth routes (unprotected)
	auth := api.Group("/auth")
	{
		auth.POST("/register", s.AuthHandler.Register)
		auth.POST("/login", s.AuthHandler.Login)
		auth.POST("/refresh", s.AuthHandler.RefreshToken)
	}

	// 公开路由
	public := api.Group("/public")
	{
		public.GET("/gifts/catalog", s.GiftHandler.ListCatalog) // 礼物价目表
		public.GET("/rooms", s.RoomHandler.ListRooms)           // 房间列表
	}

	// 需要认证
	protected := api.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/user", s.AuthHandler.GetCurrentUser)

		rooms := protected.Group("/rooms")
		{
			rooms.POST("", s.RoomHandler.CreateRoom)
			rooms.GET("/:id", s.RoomHandler.GetRoom)
			rooms.POST("/:id/live", s.RoomHandler.SetLive)   // 开播/下播
			rooms.DELETE("/:id", s.RoomHandler.DeleteRoom)
			rooms.POST("/:id/join", s.RoomHandler.JoinRoom)  // 加入房间
			rooms.POST("/:id/leave", s.RoomHandler.LeaveRoom)
			rooms.GET("/:id/participants", s.RoomHandler.ListParticipants)
			rooms.POST("/:id/raise-hand", s.RoomHandler.RaiseHand)
			rooms.POST("/:id/lower-hand", s.RoomHandler.LowerHand)

			// 麦位控制，房间管理员操作
			rooms.POST("/:id/grant-mic", s.MicHandler.GrantMic)
			rooms.POST("/:id/revoke-mic", s.MicHandler.RevokeMic)

			// 送礼，带限流
			if giftLimit != nil {
				rooms.POST("/:id/send-gift", s.GiftHandler.SendGift, giftLimit)
			} else {
				rooms.POST("/:id/send-gift", s.GiftHandler.SendGift)
			}

			// 房间事件流
			rooms.GET("/:id/ws", s.WSHandler.HandleWebSocket)
		}

		// 结算自取：主播/公会主/管理员按角色看到各自的待付清单
		protected.POST("/payouts/request", s.EarningsHandler.RequestPayouts)

		// 管理员路由
		admin := protected.Group("/admin")
		admin.Use(adminMiddleware)
		{
			admin.POST("/gifts", s.GiftHandler.CreateCatalogEntry)
			admin.POST("/close-month", s.EarningsHandler.CloseMonth)
			admin.POST("/finalize-month", s.EarningsHandler.FinalizeMonth)
			admin.POST("/repair-payouts", s.EarningsHandler.RepairPayouts)
			admin.POST("/rooms/:id/recount-speakers", s.MicHandler.RecountSpeakers)
		}
	}
}
