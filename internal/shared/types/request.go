package types

// Request is the host's persisted request model.
type Request struct {
	ID             string             `json:"_id"`
	Name           string             `json:"name"`
	URL            string             `json:"url"`
	Method         string             `json:"method"`
	Headers        []RequestHeader    `json:"headers"`
	Parameters     []RequestParameter `json:"parameters"`
	PathParameters []PathParameter    `json:"pathParameters,omitempty"`
	Body           RequestBody        `json:"body"`
	Authentication map[string]any     `json:"authentication"`
	Extra          Extra              `json:"-"`
}

func (r *Request) UnmarshalJSON(data []byte) error {
	type alias Request
	var a alias
	extra, err := decodeWithExtra(data, &a)
	if err != nil {
		return err
	}
	*r = Request(a)
	r.Extra = extra
	return nil
}

func (r Request) MarshalJSON() ([]byte, error) {
	type alias Request
	return encodeWithExtra(alias(r), r.Extra)
}

// RequestHeader is one header line on a host request.
type RequestHeader struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
	Extra    Extra  `json:"-"`
}

func (h *RequestHeader) UnmarshalJSON(data []byte) error {
	type alias RequestHeader
	var a alias
	extra, err := decodeWithExtra(data, &a)
	if err != nil {
		return err
	}
	*h = RequestHeader(a)
	h.Extra = extra
	return nil
}

func (h RequestHeader) MarshalJSON() ([]byte, error) {
	type alias RequestHeader
	return encodeWithExtra(alias(h), h.Extra)
}

// RequestParameter is a query parameter listed separately from the URL.
type RequestParameter struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
	Extra    Extra  `json:"-"`
}

func (p *RequestParameter) UnmarshalJSON(data []byte) error {
	type alias RequestParameter
	var a alias
	extra, err := decodeWithExtra(data, &a)
	if err != nil {
		return err
	}
	*p = RequestParameter(a)
	p.Extra = extra
	return nil
}

func (p RequestParameter) MarshalJSON() ([]byte, error) {
	type alias RequestParameter
	return encodeWithExtra(alias(p), p.Extra)
}

// PathParameter fills a `:name` segment of the request path.
type PathParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RequestBody is the host body shape, keyed by MIME type. Pointer fields
// distinguish "absent" from "empty" so the shape survives a round trip.
type RequestBody struct {
	MimeType *string     `json:"mimeType,omitempty"`
	Text     *string     `json:"text,omitempty"`
	FileName *string     `json:"fileName,omitempty"`
	Params   []BodyParam `json:"params,omitempty"`
	Extra    Extra       `json:"-"`
}

func (b *RequestBody) UnmarshalJSON(data []byte) error {
	type alias RequestBody
	var a alias
	extra, err := decodeWithExtra(data, &a)
	if err != nil {
		return err
	}
	*b = RequestBody(a)
	b.Extra = extra
	return nil
}

func (b RequestBody) MarshalJSON() ([]byte, error) {
	type alias RequestBody
	return encodeWithExtra(alias(b), b.Extra)
}

// BodyParam is one urlencoded or multipart entry.
type BodyParam struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	Type     string `json:"type,omitempty"` // "text" or "file" for multipart
	FileName string `json:"fileName,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
	Extra    Extra  `json:"-"`
}

func (p *BodyParam) UnmarshalJSON(data []byte) error {
	type alias BodyParam
	var a alias
	extra, err := decodeWithExtra(data, &a)
	if err != nil {
		return err
	}
	*p = BodyParam(a)
	p.Extra = extra
	return nil
}

func (p BodyParam) MarshalJSON() ([]byte, error) {
	type alias BodyParam
	return encodeWithExtra(alias(p), p.Extra)
}

// RunScriptRequest is the inbound bridge payload.
type RunScriptRequest struct {
	Script  string          `json:"script" binding:"required"`
	Context *RequestContext `json:"context" binding:"required"`
}

// WSMessage is a websocket bridge frame. Inbound frames carry Script and
// Context; outbound frames carry either Context or Error.
type WSMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Script  string          `json:"script,omitempty"`
	Context *RequestContext `json:"context,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
