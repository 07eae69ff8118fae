package utils

// Pointer helpers for optional struct fields.
func Float64Ptr(f float64) *float64 {
	return &f
}

func BoolPtr(b bool) *bool {
	return &b
}

func StringPtr(s string) *string {
	return &s
}

func IntPtr(i int) *int {
	return &i
}

func StringPtrValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
