package chat

import (
	"github.com/poiesic/newsdesk/ai"
	"github.com/poiesic/newsdesk/core"
)

// Monitor provides hooks to observe a chat turn.
// Hooks after AfterPrompt run on the generation goroutine.
type Monitor interface {
	Start(sessionID, query string)
	AfterRetrieval(results []core.SearchResult)
	AfterPrompt(messages []ai.Message)
	Finish(answer string, err error)
}

// MonitorFuncs adapts optional functions to Monitor.
type MonitorFuncs struct {
	StartFunc          func(sessionID, query string)
	AfterRetrievalFunc func(results []core.SearchResult)
	AfterPromptFunc    func(messages []ai.Message)
	FinishFunc         func(answer string, err error)
}

var _ Monitor = MonitorFuncs{}

func (m MonitorFuncs) Start(sessionID, query string) {
	if m.StartFunc != nil {
		m.StartFunc(sessionID, query)
	}
}

func (m MonitorFuncs) AfterRetrieval(results []core.SearchResult) {
	if m.AfterRetrievalFunc != nil {
		m.AfterRetrievalFunc(results)
	}
}

func (m MonitorFuncs) AfterPrompt(messages []ai.Message) {
	if m.AfterPromptFunc != nil {
		m.AfterPromptFunc(messages)
	}
}

func (m MonitorFuncs) Finish(answer string, err error) {
	if m.FinishFunc != nil {
		m.FinishFunc(answer, err)
	}
}

type noopMonitor struct{}

var _ Monitor = noopMonitor{}

func (noopMonitor) Start(_, _ string)                    {}
func (noopMonitor) AfterRetrieval(_ []core.SearchResult) {}
func (noopMonitor) AfterPrompt(_ []ai.Message)           {}
func (noopMonitor) Finish(_ string, _ error)             {}
