package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxUsernameLen   = 150
	MinPasswordLen   = 8
	MaxProfileName   = 100
	MaxProfileAbout  = 500
	MaxPostTitleLen  = 100
	MaxPostCaption   = 4000
	MaxCommentLength = 2000
)

func checkText(verr *ValidationError, field, value string, max int) {
	switch {
	case strings.TrimSpace(value) == "":
		verr.Add(field, "cannot be empty")
	case utf8.RuneCountInString(value) > max:
		verr.Add(field, "is too long")
	}
}

func ValidateCredentials(username, password string) error {
	var verr ValidationError
	checkText(&verr, "username", username, MaxUsernameLen)
	for _, r := range username {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("@.+-_", r)) {
			verr.Add("username", "may contain only letters, digits and @/./+/-/_")
			break
		}
	}
	if utf8.RuneCountInString(password) < MinPasswordLen {
		verr.Add("password", "must be at least 8 characters long")
	}
	return verr.OrNil()
}

func ValidateProfile(p *Profile) error {
	var verr ValidationError
	checkText(&verr, "name", p.Name, MaxProfileName)
	if utf8.RuneCountInString(p.About) > MaxProfileAbout {
		verr.Add("about", "is too long")
	}
	return verr.OrNil()
}

func ValidatePost(p *Post) error {
	var verr ValidationError
	checkText(&verr, "title", p.Title, MaxPostTitleLen)
	checkText(&verr, "caption", p.Caption, MaxPostCaption)
	return verr.OrNil()
}

func ValidateCommentText(text string) error {
	var verr ValidationError
	checkText(&verr, "text", text, MaxCommentLength)
	return verr.OrNil()
}
