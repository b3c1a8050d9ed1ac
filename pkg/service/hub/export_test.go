package hub

import (
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/model/auth"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

// AttachStub registers a connection-less client and returns its buffer
func (h *Hub) AttachStub(orgID types.OrganizationID, p auth.Principal, size int) <-chan []byte {
	c := &client{
		hub:       h,
		room:      model.OrganizationChannel(orgID),
		orgID:     orgID,
		principal: p,
		send:      make(chan []byte, size),
	}
	h.register(c)
	return c.send
}
