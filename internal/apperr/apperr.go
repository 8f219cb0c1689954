// Package apperr classifies infrastructure failures on top of go-errors so
// that a single transport layer can turn them into status codes.
package apperr

import (
	goerrors "github.com/goliatone/go-errors"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindConflict
	KindDatabase
	KindCache
	KindMail
)

// Text codes separate the infrastructure kinds that share a go-errors category.
const (
	TextCodeDatabase = "DATABASE"
	TextCodeCache    = "CACHE"
	TextCodeMail     = "MAIL"
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindDatabase:
		return "database"
	case KindCache:
		return "cache"
	case KindMail:
		return "mail"
	default:
		return "internal"
	}
}

func (k Kind) category() goerrors.Category {
	switch k {
	case KindValidation:
		return goerrors.CategoryValidation
	case KindUnauthorized:
		return goerrors.CategoryAuth
	case KindConflict:
		return goerrors.CategoryConflict
	case KindCache, KindMail:
		return goerrors.CategoryOperation
	default:
		return goerrors.CategoryInternal
	}
}

func (k Kind) textCode() string {
	switch k {
	case KindDatabase:
		return TextCodeDatabase
	case KindCache:
		return TextCodeCache
	case KindMail:
		return TextCodeMail
	default:
		return ""
	}
}

// Wrap tags err with kind, using op as the message. A nil err stays nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	rich := goerrors.Wrap(err, kind.category(), op)
	if code := kind.textCode(); code != "" {
		rich = rich.WithTextCode(code)
	}
	return rich
}

func Database(op string, err error) error { return Wrap(KindDatabase, op, err) }
func Cache(op string, err error) error    { return Wrap(KindCache, op, err) }
func Mail(op string, err error) error     { return Wrap(KindMail, op, err) }
func Internal(op string, err error) error { return Wrap(KindInternal, op, err) }

// Classify returns the kind of the outermost rich error in err's chain and
// whether one was found.
func Classify(err error) (Kind, bool) {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return KindInternal, false
	}
	switch rich.TextCode {
	case TextCodeDatabase:
		return KindDatabase, true
	case TextCodeCache:
		return KindCache, true
	case TextCodeMail:
		return KindMail, true
	}
	switch rich.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return KindValidation, true
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return KindUnauthorized, true
	case goerrors.CategoryConflict:
		return KindConflict, true
	default:
		return KindInternal, true
	}
}

// KindOf is Classify without the found flag; unclassified errors are internal.
func KindOf(err error) Kind {
	k, _ := Classify(err)
	return k
}
