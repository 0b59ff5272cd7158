package repository

import "strings"

func lowered(s string) string {
	return strings.ToLower(s)
}

// placeholders builds "?, ?, ?" for IN clauses with n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// int64Args converts an int64 slice into []interface{} for query arguments.
func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
