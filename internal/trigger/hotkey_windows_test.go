//go:build windows

package trigger

import (
	"github.com/moutend/go-hook/pkg/types"

	g "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = g.Describe("chord", func() {
	key := func(vk types.VKCode, msg types.Message) types.KeyboardEvent {
		ev := types.KeyboardEvent{Message: msg}
		ev.VKCode = vk
		return ev
	}

	g.It("fires on Enter while Shift is held", func() {
		var c chord
		Expect(c.observe(key(types.VK_LSHIFT, types.WM_KEYDOWN))).To(BeFalse())
		Expect(c.observe(key(types.VK_RETURN, types.WM_KEYDOWN))).To(BeTrue())
	})

	g.It("ignores Enter after Shift is released", func() {
		var c chord
		c.observe(key(types.VK_RSHIFT, types.WM_KEYDOWN))
		c.observe(key(types.VK_RSHIFT, types.WM_KEYUP))
		Expect(c.observe(key(types.VK_RETURN, types.WM_KEYDOWN))).To(BeFalse())
	})
})
