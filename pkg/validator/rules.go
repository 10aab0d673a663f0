package validator

import (
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
)

var (
	alphaRe     = regexp.MustCompile(`^[a-zA-Z]+$`)
	alphaNumRe  = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	alphaDashRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	filenameRe  = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	upperRe     = regexp.MustCompile(`[A-Z]`)
	lowerRe     = regexp.MustCompile(`[a-z]`)
	digitRe     = regexp.MustCompile(`[0-9]`)
	symbolRe    = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// scriptPatterns are substrings rejected by the no_script rule.
// Matches are case-insensitive and logged as potential XSS attempts.
var scriptPatterns = []string{
	"<script", "javascript:", "eval(", "expression(", "onload=", "onerror=",
}

// applyRule evaluates one rule against a field value. Returns false on
// failure after recording the error message. Unknown rule names pass,
// matching the permissive behavior callers depend on.
func (v *Validator) applyRule(field, value, name, param string) bool {
	switch name {
	case "required":
		if value == "" {
			v.addError(field, fmt.Sprintf("The %s field is required.", field))
			return false
		}

	case "email":
		if value == "" {
			return true
		}
		if _, err := mail.ParseAddress(value); err != nil || strings.ContainsAny(value, " <>") {
			v.addError(field, fmt.Sprintf("The %s must be a valid email address.", field))
			return false
		}

	case "min":
		n, _ := strconv.Atoi(param)
		if value != "" && len(value) < n {
			v.addError(field, fmt.Sprintf("The %s must be at least %d characters.", field, n))
			return false
		}

	case "max":
		n, _ := strconv.Atoi(param)
		if value != "" && len(value) > n {
			v.addError(field, fmt.Sprintf("The %s may not be greater than %d characters.", field, n))
			return false
		}

	case "numeric":
		if value != "" {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				v.addError(field, fmt.Sprintf("The %s must be a number.", field))
				return false
			}
		}

	case "integer":
		if value != "" {
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				v.addError(field, fmt.Sprintf("The %s must be an integer.", field))
				return false
			}
		}

	case "alpha":
		if value != "" && !alphaRe.MatchString(value) {
			v.addError(field, fmt.Sprintf("The %s may only contain letters.", field))
			return false
		}

	case "alpha_num":
		if value != "" && !alphaNumRe.MatchString(value) {
			v.addError(field, fmt.Sprintf("The %s may only contain letters and numbers.", field))
			return false
		}

	case "alpha_dash":
		if value != "" && !alphaDashRe.MatchString(value) {
			v.addError(field, fmt.Sprintf("The %s may only contain letters, numbers, dashes and underscores.", field))
			return false
		}

	case "regex":
		return v.applyRegex(field, value, param)

	case "in":
		if value == "" {
			return true
		}
		for _, opt := range strings.Split(param, ",") {
			if value == opt {
				return true
			}
		}
		v.addError(field, fmt.Sprintf("The selected %s is invalid.", field))
		return false

	case "unique":
		return v.applyUnique(field, value, param)

	case "confirmed":
		if value != v.data[field+"_confirmation"] {
			v.addError(field, fmt.Sprintf("The %s confirmation does not match.", field))
			return false
		}

	case "password":
		return v.applyPassword(field, value)

	case "safe_filename":
		if value != "" && !filenameRe.MatchString(value) {
			v.addError(field, fmt.Sprintf("The %s contains unsafe characters.", field))
			return false
		}

	case "no_script":
		return v.applyNoScript(field, value)
	}

	return true
}

func (v *Validator) applyRegex(field, value, pattern string) bool {
	if value == "" {
		return true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		v.addError(field, fmt.Sprintf("The %s format is invalid.", field))
		return false
	}
	if !re.MatchString(value) {
		v.addError(field, fmt.Sprintf("The %s format is invalid.", field))
		return false
	}
	return true
}

// applyUnique checks value against storage: unique:table,column[,exceptID].
// Column defaults to the field name.
func (v *Validator) applyUnique(field, value, param string) bool {
	if value == "" || v.unique == nil {
		return true
	}

	parts := strings.SplitN(param, ",", 3)
	table := parts[0]
	column := field
	exceptID := ""
	if len(parts) > 1 && parts[1] != "" {
		column = parts[1]
	}
	if len(parts) > 2 {
		exceptID = parts[2]
	}

	exists, err := v.unique.Exists(v.ctx, table, column, value, exceptID)
	if err != nil {
		if v.logger != nil {
			v.logger.Error("unique check failed",
				slog.String("field", field), slog.String("table", table), slog.Any("error", err))
		}
		v.addError(field, fmt.Sprintf("The %s could not be verified.", field))
		return false
	}
	if exists {
		v.addError(field, fmt.Sprintf("The %s has already been taken.", field))
		return false
	}
	return true
}

// applyPassword enforces composition: length, upper, lower, digit, symbol.
// Empty values pass; pair with "required" to reject them.
func (v *Validator) applyPassword(field, value string) bool {
	if value == "" {
		return true
	}

	var problems []string
	if len(value) < 8 {
		problems = append(problems, "must be at least 8 characters long")
	}
	if !upperRe.MatchString(value) {
		problems = append(problems, "must contain at least one uppercase letter")
	}
	if !lowerRe.MatchString(value) {
		problems = append(problems, "must contain at least one lowercase letter")
	}
	if !digitRe.MatchString(value) {
		problems = append(problems, "must contain at least one number")
	}
	if !symbolRe.MatchString(value) {
		problems = append(problems, "must contain at least one special character")
	}

	if len(problems) > 0 {
		v.addError(field, fmt.Sprintf("The %s %s.", field, strings.Join(problems, ", ")))
		return false
	}
	return true
}

func (v *Validator) applyNoScript(field, value string) bool {
	lower := strings.ToLower(value)
	for _, pattern := range scriptPatterns {
		if strings.Contains(lower, pattern) {
			v.addError(field, fmt.Sprintf("The %s contains potentially dangerous content.", field))
			if v.logger != nil {
				v.logger.Warn("potential XSS attempt detected",
					slog.String("field", field), slog.String("pattern", pattern))
			}
			return false
		}
	}
	return true
}
