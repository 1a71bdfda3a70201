package dto

// ErrorResponseDTO는 공통 에러 응답 형식을 통일하기 위한 DTO이다.
type ErrorResponseDTO struct {
	Error string `json:"error" example:"unauthenticated"`
}

// MessageResponseDTO는 단순 메시지 응답 형식을 통일하기 위한 DTO이다.
type MessageResponseDTO struct {
	Message string `json:"message" example:"ok"`
}

// HealthResponseDTO는 /health 응답이다.
type HealthResponseDTO struct {
	Status  string `json:"status" example:"ok"`
	Backend string `json:"backend,omitempty" example:"down"`
	Error   string `json:"error,omitempty"`
}
