package utils

func StringPointer(s string) *string {
	return &s
}
