package chat

import "fmt"

// Canned bot texts.
const (
	TimeoutText = "The request took too long to complete. This might happen with complex queries or when analyzing documents. Please try asking a simpler question or try again later."
	AbortText   = "The request was cancelled due to timeout. Please try again with a simpler question."
	FailureText = "I'm sorry, I'm currently experiencing technical difficulties. Please try again in a moment, or contact support if the issue persists."
	ErrorText   = "Sorry, I encountered an error. Please try again."
	SlowText    = "I'm still processing your request. This might take a moment for complex queries..."
)

func assistantName(names ...string) string {
	for _, n := range names {
		if n != "" {
			return n
		}
	}
	return "AI"
}

// welcomeText greets with a known configuration.
func welcomeText(name string) string {
	return fmt.Sprintf("Hello! 👋 I'm your friendly %s assistant. I'm here to help you with any questions about our company, policies, or services. 😊", name)
}

// welcomeTextNoConfig greets when the backend has no configuration yet.
func welcomeTextNoConfig(name string) string {
	return fmt.Sprintf("Hello! 👋 I'm your friendly %s assistant. I'm here to help you with any questions about our company, policies, or services. Feel free to ask me anything in your preferred language! 😊", name)
}

// welcomeTextOffline greets when configurations could not be fetched.
func welcomeTextOffline(name string) string {
	return fmt.Sprintf("Hello! 👋 I'm your friendly %s assistant. I'm currently experiencing some connectivity issues, but I'll do my best to help you with any questions! 😊", name)
}

// resetText greets after the conversation is cleared.
func resetText(name string) string {
	return fmt.Sprintf("Hello! 👋 I'm the %s assistant. I'm here to help you with any questions you might have. What would you like to know?", name)
}
