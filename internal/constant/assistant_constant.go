package constant

const (
	// Button callback ids
	ButtonSummary = "SUMMARY"
	ButtonQuery   = "QUERY"
	ButtonEnd     = "END"

	// ContinueButtonsEvery surfaces the continue button set after every
	// Nth answered question.
	ContinueButtonsEvery = 3

	// SummaryHistoryLabel is the pseudo-question recorded in history when
	// the user requests a summary.
	SummaryHistoryLabel = "SUMMARY"

	SummaryQuestion = "Please summarize the above text in detail."
)

// User-facing messages. Every surfaced failure is short and actionable.
const (
	MsgGreeting = "👋 Hello! I'm your PDF Q&A assistant. Please send me the PDF you want to talk about!"

	MsgParsing = "📑 Parsing PDF, please wait…"

	MsgParseFailed = "❌ Sorry, I couldn't parse that PDF right now. Please send it again."

	MsgIndexingFailed = "❌ PDF was parsed but indexing failed. Please send the PDF one more time."

	MsgIndexed = "✅ PDF indexed! What next?"

	MsgNoDocument = "📄 Please send a PDF first!"

	MsgAskQuestion = "❓ Send me your question."

	MsgWhatNext = "What next?"

	MsgSessionEnded = "👋 Session ended. Send 'hi' to start a new one."

	MsgGenerationFailed = "❌ I couldn't generate an answer just now. Please ask again."
)
