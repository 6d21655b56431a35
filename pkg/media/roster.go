package media

import (
	"net/netip"

	"github.com/rexliu/jamctl/pkg/control"
)

// Connect assigns addr to the lowest free slot and returns its index. A client
// that already holds a slot keeps it.
func (s *Server) Connect(addr netip.AddrPort) (int, error) {
	if !addr.IsValid() || addr.Addr().IsUnspecified() {
		return -1, ErrInvalidAddress
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.slotOf(addr); i >= 0 {
		return i, nil
	}
	if !s.acl.allowed(addr.Addr()) {
		return -1, ErrAccessDenied
	}
	free := -1
	for i, row := range s.slots {
		if row.Empty() {
			free = i
			break
		}
	}
	if free < 0 {
		return -1, ErrServerFull
	}
	s.slots[free] = control.ClientRow{Address: addr, Channels: 1}
	if s.events != nil {
		s.events.Connect(addr.String(), s.activeLocked())
	}
	return free, nil
}

// Disconnect frees the slot held by addr. The event sink sees IDLE when the
// last client leaves.
func (s *Server) Disconnect(addr netip.AddrPort) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.slotOf(addr)
	if i < 0 {
		return ErrNotConnected
	}
	s.slots[i] = control.ClientRow{Address: control.EmptyAddress}
	if s.activeLocked() == 0 && s.events != nil {
		s.events.Idle()
	}
	return nil
}

// SetChannelInfo replaces the metadata of the client at addr.
func (s *Server) SetChannelInfo(addr netip.AddrPort, info ChannelInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.slotOf(addr)
	if i < 0 {
		return ErrNotConnected
	}
	row := &s.slots[i]
	row.Name = info.Name
	row.Instrument = info.Instrument
	row.City = info.City
	row.Country = info.Country
	row.SkillLevel = info.SkillLevel
	if s.events != nil {
		s.events.ChannelInfoChanged(addr.String(), info.Name)
	}
	return nil
}

// SetAudioSettings updates the network parameters reported for addr.
func (s *Server) SetAudioSettings(addr netip.AddrPort, jitterBufferSize, channels int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.slotOf(addr)
	if i < 0 {
		return ErrNotConnected
	}
	s.slots[i].JitterBufferSize = jitterBufferSize
	s.slots[i].Channels = channels
	return nil
}

func (s *Server) Clients() []control.ClientRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]control.ClientRow(nil), s.slots...)
}

// ActiveClients returns the number of occupied slots.
func (s *Server) ActiveClients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked()
}

func (s *Server) activeLocked() int {
	n := 0
	for _, row := range s.slots {
		if !row.Empty() {
			n++
		}
	}
	return n
}

func (s *Server) slotOf(addr netip.AddrPort) int {
	if !addr.IsValid() {
		return -1
	}
	for i, row := range s.slots {
		if !row.Empty() && row.Address == addr {
			return i
		}
	}
	return -1
}
