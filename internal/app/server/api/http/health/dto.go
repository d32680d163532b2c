package health

type Input struct{}

type Output struct {
	Body Response
}

// Response состояние сервиса; storage "memory" для хранилища в памяти
type Response struct {
	Status  string `json:"status" example:"OK" doc:"Состояние сервиса"`
	Storage string `json:"storage" example:"OK" doc:"Доступность хранилища"`
}
