package model

// Target is a discovered remote management endpoint. ConnectURL doubles as
// the target's unique identity string. Labels and Annotations are the
// attribute sets match expressions are evaluated against.
type Target struct {
	ConnectURL  string
	Alias       string
	Labels      map[string]string
	Annotations map[string]string
}
