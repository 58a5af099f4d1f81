package phev

import "sync"

// Callback is invoked once when the car acknowledges a command. err is always
// nil today; there is no timeout at this layer.
type Callback func(c *Client, err error)

// callbackContext owns a pending callback until the pipe fires it. After the
// call both fields are cleared, so the context is spent.
type callbackContext struct {
	mu       sync.Mutex
	callback Callback
	client   *Client
}

func newCallbackContext(cb Callback, c *Client) *callbackContext {
	return &callbackContext{callback: cb, client: c}
}

// fire is the trampoline handed to the pipe.
func (cc *callbackContext) fire(reg byte) {
	cc.mu.Lock()
	cb, c := cc.callback, cc.client
	cc.callback, cc.client = nil, nil
	cc.mu.Unlock()

	if cb == nil {
		return
	}
	cb(c, nil)
}
