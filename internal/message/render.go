package message

import (
	"fmt"

	"github.com/CosmoTheDev/feishu-notifier/models"
)

// Render composes mc, degrading to Legacy when composition returns an
// error or panics. The returned message is always usable; err reports
// why the fallback was taken.
func Render(mc models.MessageContext) (msg models.RenderedMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("composing %s message: panic: %v", mc.Category, r)
			msg = Legacy(mc.Category, mc.OriginalType, mc.Payload)
		}
	}()

	msg, err = Compose(mc)
	if err != nil {
		return Legacy(mc.Category, mc.OriginalType, mc.Payload), fmt.Errorf("composing %s message: %w", mc.Category, err)
	}
	return msg, nil
}
