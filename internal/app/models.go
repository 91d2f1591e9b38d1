package app

import (
	"lostfound_backend/internal/item"
	"lostfound_backend/internal/message"
	"lostfound_backend/internal/notification"
	"lostfound_backend/internal/user"
)

// Models lists every persisted model in dependency order for AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&item.Item{},
		&message.Message{},
		&notification.Notification{},
	}
}
