package deepseek

const (
	createSessionPath   = "chat_session/create"
	deleteSessionPath   = "chat_session/delete"
	createChallengePath = "chat/create_pow_challenge"
	completionPath      = "chat/completion"

	// challenges are scoped to the absolute completion path
	completionTargetPath = "/api/v0/chat/completion"

	powResponseHeader = "X-Ds-Pow-Response"

	contentPath = "choices.0.delta.content"
)
