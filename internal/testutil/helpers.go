package testutil

// Ptr returns a pointer to v. Control-message and config fixtures use it for
// optional fields such as *bool attached flags and *int slot params.
func Ptr[T any](v T) *T { return &v }
