package notify

import (
	"github.com/wmkit/wmkit/internal/config"
	"github.com/wmkit/wmkit/internal/tile"
)

// arrangeLocked repositions every popup in one stack. When the stack no
// longer fits the workarea the oldest entries are evicted one at a time
// until it does; the loop is bounded because the list strictly shrinks
// and a single popup is never evicted on its own account.
func (m *Manager) arrangeLocked(key listKey) {
	list := m.lists[key]
	if len(list) == 0 {
		delete(m.lists, key)
		return
	}

	wa, err := m.backend.Workarea(key.screen)
	if err != nil {
		m.logger.Warn("workarea lookup failed, leaving stack in place",
			"screen", key.screen, "error", err)
		return
	}

	pad := m.cfg.Display.Padding
	spacing := m.cfg.Display.Spacing

	var evicted []*Notification
	for len(list) > 1 && stackHeight(list, spacing) > wa.Height-2*pad {
		m.destroyLocked(list[0])
		evicted = append(evicted, list[0])
		list = m.lists[key]
	}

	offset := pad
	for _, n := range list {
		n.X = horizontal(wa, key.position, n.outerWidth(), pad)
		if key.position.Top() {
			n.Y = wa.Y + offset
		} else {
			n.Y = wa.Y + wa.Height - offset - n.outerHeight()
		}
		if n.surface != nil {
			n.surface.Move(n.X, n.Y)
		}
		offset += n.outerHeight() + spacing
	}

	// Closed callbacks come last so they observe the settled stack.
	for _, n := range evicted {
		m.notifyClosedLocked(n, ReasonExpired)
	}
}

// stackHeight is the vertical extent of a stack including inter-popup
// spacing but excluding the workarea edge padding.
func stackHeight(list []*Notification, spacing int) int {
	total := 0
	for i, n := range list {
		if i > 0 {
			total += spacing
		}
		total += n.outerHeight()
	}
	return total
}

// horizontal places a popup on the x axis according to its corner:
// left corners sit flush left plus padding, middle corners center, and
// everything else is flush right minus padding.
func horizontal(wa tile.Rect, pos config.Position, width, pad int) int {
	switch {
	case pos.Left():
		return wa.X + pad
	case pos.Middle():
		return wa.X + (wa.Width-width)/2
	default:
		return wa.X + wa.Width - width - pad
	}
}
