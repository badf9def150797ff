package sdk

import "github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"

// Execution is the script's collection-runner flow control.
type Execution struct {
	Location []string `json:"location"`

	skipRequest bool
	nextRequest string
}

func NewExecution(e types.Execution) *Execution {
	return &Execution{
		Location:    append([]string{}, e.Location...),
		skipRequest: e.SkipRequest,
		nextRequest: e.NextRequestIDOrName,
	}
}

func (e *Execution) Kind() Kind { return KindExecution }

// SkipRequest asks the runner not to send the current request.
func (e *Execution) SkipRequest() {
	e.skipRequest = true
}

// SetNextRequest names the request the runner should continue with.
func (e *Execution) SetNextRequest(idOrName string) {
	e.nextRequest = idOrName
}

func (e *Execution) ToObject() types.Execution {
	return types.Execution{
		Location:            append([]string{}, e.Location...),
		SkipRequest:         e.skipRequest,
		NextRequestIDOrName: e.nextRequest,
	}
}

// RequestInfo describes the event and iteration the script runs in.
type RequestInfo struct {
	EventName      string `json:"eventName"`
	Iteration      int    `json:"iteration"`
	IterationCount int    `json:"iterationCount"`
	RequestName    string `json:"requestName"`
	RequestID      string `json:"requestId"`
}

func (i *RequestInfo) Kind() Kind { return KindRequestInfo }

func (i *RequestInfo) ToObject() RequestInfo { return *i }
