package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	hub "github.com/nqhuy1905/course_market/websocket"
)

func UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// DashboardSocket streams live ledger events (revenue posted, payouts
// marked) to the connected teacher or admin dashboard.
var DashboardSocket = websocket.New(func(conn *websocket.Conn) {
	token := conn.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		conn.Close()
		return
	}

	client := &hub.Client{
		UserID:  userID,
		IsAdmin: claims["role"].(string) == "admin",
		Conn:    conn,
	}
	hub.Register <- client
	defer func() {
		hub.Unregister <- client
	}()

	// The feed is one-way; we only read to notice the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
})
