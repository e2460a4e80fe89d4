package sse

import "github.com/starford/clipper/internal/clipstore"

// OnStoreEvent forwards a clip store event to connected clients. It is
// meant to be passed to clipstore.Store.Subscribe.
func (b *Broker) OnStoreEvent(ev clipstore.Event) {
	switch ev.Kind {
	case clipstore.EventClipSaved:
		if ev.Clip != nil {
			b.PublishClipEvent(TypeClipSaved, ev.Clip)
		}
	case clipstore.EventFolderChanged:
		b.PublishClipEvent(TypeFolderChanged, ev.Layout)
	}
}
