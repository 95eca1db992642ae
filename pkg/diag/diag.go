package diag

import (
	"github.com/pkg/errors"
)

// ----------------------------------------------------------------------------
// Error taxonomy

// Every failure produced by the toolchain belongs to exactly one category.
// The first error aborts the enclosing translation: nothing is recovered
// locally, the error is wrapped with context on the way up and the CLI prints
// the category name alongside the message naming the offending line or token.

type Category string

const (
	IOError       Category = "IOError"       // input not found, output not writable
	LexError      Category = "LexError"      // malformed literal, unknown character
	SyntaxError   Category = "SyntaxError"   // token seen where another was expected
	SemanticError Category = "SemanticError" // duplicate or undefined symbol, misuse of void
	EncodeError   Category = "EncodeError"   // unknown mnemonic, out-of-range operand
)

type categorized struct {
	category Category
	err      error
}

func (c *categorized) Error() string { return string(c.category) + ": " + c.err.Error() }

func (c *categorized) Cause() error { return c.err }

func (c *categorized) Unwrap() error { return c.err }

// Errorf creates a new error tagged with the given category.
func Errorf(cat Category, format string, args ...interface{}) error {
	return &categorized{category: cat, err: errors.Errorf(format, args...)}
}

// Wrap annotates 'err' with a message, preserving its category if it has one.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if c, ok := err.(*categorized); ok {
		return &categorized{category: c.category, err: errors.Wrap(c.err, message)}
	}
	return errors.Wrap(err, message)
}

// Wrapf is like Wrap with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if c, ok := err.(*categorized); ok {
		return &categorized{category: c.category, err: errors.Wrapf(c.err, format, args...)}
	}
	return errors.Wrapf(err, format, args...)
}

// CategoryOf walks the cause chain from the outermost error inwards and reports
// the first category tag it meets.
func CategoryOf(err error) (Category, bool) {
	for err != nil {
		if c, ok := err.(*categorized); ok {
			return c.category, true
		}
		cause, ok := err.(interface{ Unwrap() error })
		if !ok {
			return "", false
		}
		err = cause.Unwrap()
	}
	return "", false
}
