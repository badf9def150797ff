package types

// RequestContext is the flat bag the host hands to the script runner and
// receives back after the merge. It is the authoritative source of truth:
// members the runner does not model are carried in Extra.
type RequestContext struct {
	Request            *Request            `json:"request"`
	Settings           Settings            `json:"settings"`
	Environment        EnvironmentData     `json:"environment"`
	BaseEnvironment    EnvironmentData     `json:"baseEnvironment"`
	IterationData      *NamedData          `json:"iterationData,omitempty"`
	TransientVariables *NamedData          `json:"transientVariables,omitempty"`
	Globals            map[string]any      `json:"globals,omitempty"`
	CookieJar          CookieJar           `json:"cookieJar"`
	ClientCertificates []ClientCertificate `json:"clientCertificates"`
	RequestInfo        RequestInfo         `json:"requestInfo"`
	Execution          Execution           `json:"execution"`
	Response           *Response           `json:"response,omitempty"`
	Timeout            int                 `json:"timeout,omitempty"` // milliseconds
	RequestTestResults []RequestTestResult `json:"requestTestResults,omitempty"`
	Logs               []string            `json:"logs,omitempty"`
	Extra              Extra               `json:"-"`
}

func (c *RequestContext) UnmarshalJSON(data []byte) error {
	type alias RequestContext
	var a alias
	extra, err := decodeWithExtra(data, &a)
	if err != nil {
		return err
	}
	*c = RequestContext(a)
	c.Extra = extra
	return nil
}

func (c RequestContext) MarshalJSON() ([]byte, error) {
	type alias RequestContext
	return encodeWithExtra(alias(c), c.Extra)
}

// EnvironmentData is a persisted environment: identity plus its key/value data.
type EnvironmentData struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Data  map[string]any `json:"data"`
	Extra Extra          `json:"-"`
}

func (e *EnvironmentData) UnmarshalJSON(data []byte) error {
	type alias EnvironmentData
	var a alias
	extra, err := decodeWithExtra(data, &a)
	if err != nil {
		return err
	}
	*e = EnvironmentData(a)
	e.Extra = extra
	return nil
}

func (e EnvironmentData) MarshalJSON() ([]byte, error) {
	type alias EnvironmentData
	return encodeWithExtra(alias(e), e.Extra)
}

// NamedData is a named, id-less variable scope (iteration data, transient variables).
type NamedData struct {
	Name string         `json:"name"`
	Data map[string]any `json:"data"`
}

// Settings is the subset of persisted application settings the runner
// reads and writes. Everything else rides along in Extra.
type Settings struct {
	HTTPProxy    string `json:"httpProxy"`
	HTTPSProxy   string `json:"httpsProxy"`
	ProxyEnabled bool   `json:"proxyEnabled"`
	NoProxy      string `json:"noProxy"`
	Extra        Extra  `json:"-"`
}

func (s *Settings) UnmarshalJSON(data []byte) error {
	type alias Settings
	var a alias
	extra, err := decodeWithExtra(data, &a)
	if err != nil {
		return err
	}
	*s = Settings(a)
	s.Extra = extra
	return nil
}

func (s Settings) MarshalJSON() ([]byte, error) {
	type alias Settings
	return encodeWithExtra(alias(s), s.Extra)
}

// ClientCertificate is a host-configured TLS client certificate. Key, Cert
// and Pfx are file paths. A nil field is written back as null only when the
// host sent null, and is left out when the host left it out.
type ClientCertificate struct {
	ID         string  `json:"_id,omitempty"`
	Host       string  `json:"host"`
	Cert       *string `json:"cert,omitempty"`
	Key        *string `json:"key,omitempty"`
	Pfx        *string `json:"pfx,omitempty"`
	Passphrase *string `json:"passphrase,omitempty"`
	Disabled   bool    `json:"disabled"`
	Extra      Extra   `json:"-"`
}

func (c *ClientCertificate) UnmarshalJSON(data []byte) error {
	type alias ClientCertificate
	var a alias
	extra, err := decodeWithExtra(data, &a)
	if err != nil {
		return err
	}
	*c = ClientCertificate(a)
	c.Extra = keepNulls(data, extra, "cert", "key", "pfx", "passphrase")
	return nil
}

func (c ClientCertificate) MarshalJSON() ([]byte, error) {
	type alias ClientCertificate
	return encodeWithExtra(alias(c), c.Extra)
}

// CookieJar is the host's persisted cookie store for a workspace.
type CookieJar struct {
	ID      string   `json:"_id,omitempty"`
	Name    string   `json:"name,omitempty"`
	Cookies []Cookie `json:"cookies"`
	Extra   Extra    `json:"-"`
}

func (j *CookieJar) UnmarshalJSON(data []byte) error {
	type alias CookieJar
	var a alias
	extra, err := decodeWithExtra(data, &a)
	if err != nil {
		return err
	}
	*j = CookieJar(a)
	j.Extra = extra
	return nil
}

func (j CookieJar) MarshalJSON() ([]byte, error) {
	type alias CookieJar
	return encodeWithExtra(alias(j), j.Extra)
}

// Cookie is one persisted cookie. Expires is kept untyped because hosts
// store either an ISO date, a number or the string "Infinity".
type Cookie struct {
	ID       string `json:"id,omitempty"`
	Key      string `json:"key"`
	Value    string `json:"value"`
	Domain   string `json:"domain,omitempty"`
	Path     string `json:"path,omitempty"`
	Expires  any    `json:"expires,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty"`
	HostOnly bool   `json:"hostOnly,omitempty"`
	Extra    Extra  `json:"-"`
}

func (c *Cookie) UnmarshalJSON(data []byte) error {
	type alias Cookie
	var a alias
	extra, err := decodeWithExtra(data, &a)
	if err != nil {
		return err
	}
	*c = Cookie(a)
	c.Extra = extra
	return nil
}

func (c Cookie) MarshalJSON() ([]byte, error) {
	type alias Cookie
	return encodeWithExtra(alias(c), c.Extra)
}

// RequestInfo describes where in a collection run the script executes.
type RequestInfo struct {
	EventName      string `json:"eventName,omitempty"`
	Iteration      int    `json:"iteration,omitempty"`
	IterationCount int    `json:"iterationCount,omitempty"`
	Extra          Extra  `json:"-"`
}

func (r *RequestInfo) UnmarshalJSON(data []byte) error {
	type alias RequestInfo
	var a alias
	extra, err := decodeWithExtra(data, &a)
	if err != nil {
		return err
	}
	*r = RequestInfo(a)
	r.Extra = extra
	return nil
}

func (r RequestInfo) MarshalJSON() ([]byte, error) {
	type alias RequestInfo
	return encodeWithExtra(alias(r), r.Extra)
}

// Execution is the collection-runner flow control state.
type Execution struct {
	Location            []string `json:"location"`
	SkipRequest         bool     `json:"skipRequest"`
	NextRequestIDOrName string   `json:"nextRequestIdOrName,omitempty"`
}

// Response is a host response record. The body lives on disk at BodyPath.
type Response struct {
	ID              string           `json:"_id,omitempty"`
	URL             string           `json:"url,omitempty"`
	StatusCode      int              `json:"statusCode"`
	StatusMessage   string           `json:"statusMessage"`
	Headers         []ResponseHeader `json:"headers"`
	ContentType     string           `json:"contentType,omitempty"`
	BodyPath        string           `json:"bodyPath,omitempty"`
	BodyCompression *string          `json:"bodyCompression,omitempty"`
	ElapsedTime     float64          `json:"elapsedTime"`
	BytesRead       int64            `json:"bytesRead,omitempty"`
	Extra           Extra            `json:"-"`
}

func (r *Response) UnmarshalJSON(data []byte) error {
	type alias Response
	var a alias
	extra, err := decodeWithExtra(data, &a)
	if err != nil {
		return err
	}
	*r = Response(a)
	r.Extra = extra
	return nil
}

func (r Response) MarshalJSON() ([]byte, error) {
	type alias Response
	return encodeWithExtra(alias(r), r.Extra)
}

// ResponseHeader is one response header line.
type ResponseHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TestStatus is the outcome of one recorded test case.
type TestStatus string

const (
	TestPassed  TestStatus = "passed"
	TestFailed  TestStatus = "failed"
	TestSkipped TestStatus = "skipped"
)

// TestCategory tells which script phase recorded a result.
type TestCategory string

const (
	CategoryUnknown       TestCategory = "unknown"
	CategoryPreRequest    TestCategory = "pre-request"
	CategoryAfterResponse TestCategory = "after-response"
)

// RequestTestResult is one test()/skip() record emitted by a script run.
type RequestTestResult struct {
	TestCase      string       `json:"testCase"`
	Status        TestStatus   `json:"status"`
	ExecutionTime float64      `json:"executionTime"` // milliseconds
	ErrorMessage  string       `json:"errorMessage,omitempty"`
	Category      TestCategory `json:"category"`
}
