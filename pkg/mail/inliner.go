package mail

import (
	"errors"

	"github.com/vanng822/go-premailer/premailer"
)

// InlineCSS moves <style> rules into per-element style attributes so HTML
// email renders consistently across clients that strip style blocks.
func InlineCSS(html string) (string, error) {
	p, err := premailer.NewPremailerFromString(html, premailer.NewOptions())
	if err != nil {
		return "", errors.Join(ErrFailedToSend, err)
	}
	inlined, err := p.Transform()
	if err != nil {
		return "", errors.Join(ErrFailedToSend, err)
	}
	return inlined, nil
}
