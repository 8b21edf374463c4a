package dto

// 요청 본문 DTO. 형식 검증은 gin binding 태그로 하고, 업무 규칙 검증은 서비스가 한다.

type SendCodeRequest struct {
	Phone string `json:"phone" binding:"required" example:"13800138000"`
}

type LoginRequest struct {
	Phone string `json:"phone" binding:"required" example:"13800138000"`
	Code  string `json:"code" binding:"required,len=6" example:"123456"`
}

type RefreshTokenRequest struct {
	Token string `json:"token"`
}

type UpdateProfileRequest struct {
	Nickname *string `json:"nickname,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

type DeleteAccountRequest struct {
	Phone       string `json:"phone" binding:"required"`
	Code        string `json:"code" binding:"required"`
	ConfirmText string `json:"confirm_text" binding:"required" example:"我确认删除账号"`
}

// DiaryRequest 의 diary_date 는 yyyy-MM-dd 이다. 비어 있으면 오늘이다.
type DiaryRequest struct {
	Title     string `json:"title" binding:"max=50"`
	Content   string `json:"content" binding:"required,max=5000"`
	IsDraft   *bool  `json:"is_draft,omitempty"`
	DiaryDate string `json:"diary_date,omitempty" example:"2025-01-08"`
}

type DiaryUpdateRequest struct {
	Title     *string `json:"title,omitempty" binding:"omitempty,max=50"`
	Content   *string `json:"content,omitempty" binding:"omitempty,max=5000"`
	IsDraft   *bool   `json:"is_draft,omitempty"`
	DiaryDate *string `json:"diary_date,omitempty" example:"2025-01-08"`
}

type AnalysisRequest struct {
	DiaryID string `json:"diary_id" binding:"required"`
}

type CreateOrderRequest struct {
	PlanType string `json:"plan_type" binding:"required,oneof=MONTHLY QUARTERLY ANNUAL" example:"MONTHLY"`
}

type PaymentRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}
