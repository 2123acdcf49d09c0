package dto

// ── 辅助分析模块 DTO ──

// AskRequest 提问请求；SectionIDs 可选，用于提供课表上下文
type AskRequest struct {
	Question   string   `json:"question"    binding:"required,max=2000"`
	SectionIDs []string `json:"section_ids" binding:"omitempty,max=20,dive,required,max=32"`
}

// AskResponse 回答
type AskResponse struct {
	Answer string `json:"answer"`
}

// FeedbackResponse 课表评价（以 "Score: X/10" 开头）
type FeedbackResponse struct {
	Feedback string `json:"feedback"`
}
