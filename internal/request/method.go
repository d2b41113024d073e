package request

type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
)

// ParseMethod converts an uppercase method token. Matching is case-sensitive.
func ParseMethod(token string) (Method, error) {
	switch m := Method(token); m {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		return m, nil
	}
	return "", &ParseError{Kind: InvalidMethod, Detail: token}
}

func (m Method) String() string {
	return string(m)
}
