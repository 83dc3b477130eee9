package llm

import "context"

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Reply      string
	Transcript string
	Err        error
	Calls      int
}

func (m *MockClient) Chat(ctx context.Context, messages []Message) (string, error) {
	m.Calls++
	return m.Reply, m.Err
}

func (m *MockClient) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	m.Calls++
	return m.Transcript, m.Err
}
