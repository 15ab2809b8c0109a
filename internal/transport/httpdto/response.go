package httpdto

type Meta struct {
	IdempotentReplay bool `json:"idempotentReplay,omitempty"`
}

type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err,
		Code:    code,
	}
}

// Stable machine-readable codes surfaced by the idempotency gate. No other
// idempotency-specific failures are ever exposed to clients.
const (
	CodeInvalidIdempotencyKey = "INVALID_IDEMPOTENCY_KEY"
	CodeConcurrentRequest     = "CONCURRENT_REQUEST"
	CodeIdempotencyKeyReused  = "IDEMPOTENCY_KEY_REUSED"
)
