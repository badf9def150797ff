package sdk

// Kind tags the concrete variant of a script-visible entity.
type Kind int

const (
	KindUnknown Kind = iota
	KindProperty
	KindUrl
	KindUrlMatchPattern
	KindUrlMatchPatternList
	KindQueryParam
	KindHeader
	KindHeaderList
	KindProxyConfig
	KindProxyConfigList
	KindRequestBody
	KindRequestAuth
	KindRequest
	KindResponse
	KindCertificate
	KindCookie
	KindCookieList
	KindCookieJar
	KindEnvironment
	KindVariables
	KindExecution
	KindRequestInfo
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindProperty:
		return "Property"
	case KindUrl:
		return "Url"
	case KindUrlMatchPattern:
		return "UrlMatchPattern"
	case KindUrlMatchPatternList:
		return "UrlMatchPatternList"
	case KindQueryParam:
		return "QueryParam"
	case KindHeader:
		return "Header"
	case KindHeaderList:
		return "HeaderList"
	case KindProxyConfig:
		return "ProxyConfig"
	case KindProxyConfigList:
		return "ProxyConfigList"
	case KindRequestBody:
		return "RequestBody"
	case KindRequestAuth:
		return "RequestAuth"
	case KindRequest:
		return "Request"
	case KindResponse:
		return "Response"
	case KindCertificate:
		return "Certificate"
	case KindCookie:
		return "Cookie"
	case KindCookieList:
		return "CookieList"
	case KindCookieJar:
		return "CookieJar"
	case KindEnvironment:
		return "Environment"
	case KindVariables:
		return "Variables"
	case KindExecution:
		return "Execution"
	case KindRequestInfo:
		return "RequestInfo"
	default:
		return "Unknown"
	}
}

// Kinded is implemented by every script-visible entity.
type Kinded interface {
	Kind() Kind
}

// KindOf returns the variant tag of v, or KindUnknown.
func KindOf(v any) Kind {
	if k, ok := v.(Kinded); ok {
		return k.Kind()
	}
	return KindUnknown
}

// Is reports whether v is tagged with kind k.
func Is(v any, k Kind) bool {
	return k != KindUnknown && KindOf(v) == k
}
