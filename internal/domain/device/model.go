package device

import "time"

// Device зарегистрированное устройство пользователя
type Device struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"` // mobile, desktop, web, glasses
	Platform  string    `json:"platform"`
	Version   string    `json:"version"`
	Name      string    `json:"name"`
	LastSeen  time.Time `json:"lastSeen"`
	IsOnline  bool      `json:"isOnline"`
	IsTrusted bool      `json:"isTrusted"`
}

// RegisterRequest данные для регистрации устройства
type RegisterRequest struct {
	Type     string `json:"type" minLength:"1" doc:"Тип устройства"`
	Platform string `json:"platform" minLength:"1" doc:"Платформа"`
	Version  string `json:"version" minLength:"1" doc:"Версия клиента"`
	Name     string `json:"name" minLength:"1" doc:"Имя устройства"`
}
