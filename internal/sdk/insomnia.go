package sdk

import (
	"regexp"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

// LogFunc receives diagnostics meant for the script console.
type LogFunc func(msg string)

// localVarPrefix matches the "{{ _." escape that references local variables.
var localVarPrefix = regexp.MustCompile(`\{\{\s*_\.`)

// InsomniaObject is the sandbox root object handed to scripts.
type InsomniaObject struct {
	Environment         *Environment  `json:"environment"`
	CollectionVariables *Environment  `json:"collectionVariables"`
	BaseEnvironment     *Environment  `json:"baseEnvironment"`
	IterationData       *Environment  `json:"iterationData"`
	Globals             *Environment  `json:"globals"`
	Variables           *Variables    `json:"variables"`
	Request             *Request      `json:"request"`
	Response            *Response     `json:"response,omitempty"`
	Cookies             *CookieObject `json:"cookies"`
	Info                *RequestInfo  `json:"info"`
	Execution           *Execution    `json:"execution"`

	settings           types.Settings
	clientCertificates []types.ClientCertificate
	tests              *TestRecorder
}

// Settings returns the host settings the object was built from.
func (o *InsomniaObject) Settings() types.Settings { return o.settings }

// Tests returns the run's test recorder.
func (o *InsomniaObject) Tests() *TestRecorder { return o.tests }

// InitInsomniaObject expands a host context into the sandbox object graph.
// It performs no IO; a response body is read when the script asks for it.
func InitInsomniaObject(rc *types.RequestContext, log LogFunc) (*InsomniaObject, error) {
	if rc == nil {
		return nil, &ContractViolationError{Reason: "request context is missing"}
	}
	if rc.Request == nil {
		return nil, &ContractViolationError{Reason: "request is missing from the context"}
	}
	if log == nil {
		log = func(string) {}
	}

	globals := NewEnvironment("globals", rc.Globals)
	baseEnvironment := NewEnvironment(rc.BaseEnvironment.Name, rc.BaseEnvironment.Data)
	environment := baseEnvironment
	if rc.BaseEnvironment.ID == rc.Environment.ID {
		log("warning: No environment is selected, modification of insomnia.environment will be applied to the base environment.")
	} else {
		environment = NewEnvironment(rc.Environment.Name, rc.Environment.Data)
	}

	iterationData := NewEnvironment("iterationData", nil)
	if rc.IterationData != nil {
		iterationData = NewEnvironment(rc.IterationData.Name, rc.IterationData.Data)
	}
	localVariables := NewEnvironment("transientVariables", nil)
	if rc.TransientVariables != nil {
		localVariables = NewEnvironment(rc.TransientVariables.Name, rc.TransientVariables.Data)
	}

	info := &RequestInfo{
		EventName:      rc.RequestInfo.EventName,
		Iteration:      rc.RequestInfo.Iteration,
		IterationCount: rc.RequestInfo.IterationCount,
		RequestName:    rc.Request.Name,
		RequestID:      rc.Request.ID,
	}
	if info.EventName == "" {
		info.EventName = "prerequest"
	}
	if info.Iteration == 0 {
		info.Iteration = 1
	}

	variables := NewVariables(VariablesOptions{
		Globals:       globals,
		Environment:   environment,
		Collection:    baseEnvironment,
		IterationData: iterationData,
		Local:         localVariables,
	})

	// Render the raw URL first so certificates are matched against the real host.
	sanitizedURL := localVarPrefix.ReplaceAllString(rc.Request.URL, "{{")
	renderedURL, err := ParseURL(variables.ReplaceIn(sanitizedURL))
	if err != nil {
		return nil, &ContractViolationError{Reason: "request url is malformed", Err: err}
	}
	certificate := certificateFor(rc.ClientCertificates, renderedURL.GetBaseUrl())

	proxy, err := TransformToSdkProxyOptions(
		rc.Settings.HTTPProxy,
		rc.Settings.HTTPSProxy,
		rc.Settings.ProxyEnabled,
		rc.Settings.NoProxy,
		log,
	)
	if err != nil {
		return nil, err
	}

	reqURL, err := ParseURL(rc.Request.URL)
	if err != nil {
		return nil, &ContractViolationError{Reason: "request url is malformed", Err: err}
	}
	for _, p := range rc.Request.Parameters {
		if !p.Disabled {
			reqURL.Query = append(reqURL.Query, QueryParam{Key: p.Name, Value: p.Value})
		}
	}

	headers := make([]*Header, 0, len(rc.Request.Headers))
	for _, h := range rc.Request.Headers {
		headers = append(headers, &Header{Key: h.Name, Value: h.Value, Disabled: h.Disabled})
	}
	body := ToScriptRequestBody(rc.Request.Body)

	request, err := NewRequest(RequestOptions{
		ID:             rc.Request.ID,
		Name:           rc.Request.Name,
		URL:            reqURL,
		Method:         rc.Request.Method,
		Header:         headers,
		Body:           &body,
		Auth:           ToScriptAuth(rc.Request.Authentication),
		Proxy:          &proxy,
		Certificate:    certificate,
		PathParameters: rc.Request.PathParameters,
	})
	if err != nil {
		return nil, &ContractViolationError{Reason: "request is malformed", Err: err}
	}

	var response *Response
	if rc.Response != nil {
		response = ToScriptResponse(request, rc.Response)
	}

	return &InsomniaObject{
		Environment:         environment,
		CollectionVariables: baseEnvironment,
		BaseEnvironment:     baseEnvironment,
		IterationData:       iterationData,
		Globals:             globals,
		Variables:           variables,
		Request:             request,
		Response:            response,
		Cookies:             NewCookieObject(rc.CookieJar),
		Info:                info,
		Execution:           NewExecution(rc.Execution),
		settings:            rc.Settings,
		clientCertificates:  rc.ClientCertificates,
		tests:               NewTestRecorder(CategoryFor(info.EventName)),
	}, nil
}

// FlatContext is the flattened result of a script run.
type FlatContext struct {
	Globals            map[string]any
	Environment        map[string]any
	BaseEnvironment    map[string]any
	IterationData      map[string]any
	Variables          map[string]any
	Request            *Request
	ClientCertificates []types.ClientCertificate
	CookieJar          types.CookieJar
	Info               RequestInfo
	RequestTestResults []types.RequestTestResult
	Execution          types.Execution
}

// ToObject flattens the object graph for the merge.
func (o *InsomniaObject) ToObject() FlatContext {
	return FlatContext{
		Globals:            o.Globals.ToObject(),
		Environment:        o.Environment.ToObject(),
		BaseEnvironment:    o.BaseEnvironment.ToObject(),
		IterationData:      o.IterationData.ToObject(),
		Variables:          o.Variables.LocalVarsToObject(),
		Request:            o.Request,
		ClientCertificates: o.clientCertificates,
		CookieJar:          o.Cookies.Jar().ToInsomniaCookieJar(),
		Info:               o.Info.ToObject(),
		RequestTestResults: o.tests.Results(),
		Execution:          o.Execution.ToObject(),
	}
}
