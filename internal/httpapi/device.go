package httpapi

import (
	"net/http"

	"github.com/BrandonDHaskell/drugbox/internal/drugbox/service"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/types"
)

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	proto := isProtobuf(r)

	var (
		req types.AddUserRequest
		err error
	)
	if proto {
		var body []byte
		if body, err = readProtoBody(r); err == nil {
			req, err = decodeAddUser(body)
		}
	} else {
		err = decodeJSON(w, r, &req)
	}
	if err != nil {
		s.writeBadBody(w, proto, err)
		return
	}

	u, err := s.registry.Register(r.Context(), req)
	if err != nil {
		status, code, msg := classify(s.logger, "add-user", err)
		s.writeDeviceError(w, proto, status, code, msg)
		return
	}

	if proto {
		writeProto(w, http.StatusCreated, addUserReply(u))
		return
	}
	writeJSON(w, http.StatusCreated, types.AddUserResponse{
		Status:  "success",
		Message: service.MsgUserAdded,
		User:    userView(u),
	})
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	proto := isProtobuf(r)

	var (
		req types.HandleRequest
		err error
	)
	if proto {
		var body []byte
		if body, err = readProtoBody(r); err == nil {
			req, err = decodeHandleRequest(body)
		}
	} else {
		err = decodeJSON(w, r, &req)
	}
	if err != nil {
		s.writeBadBody(w, proto, err)
		return
	}

	d, err := s.authorizer.Authorize(r.Context(), req)
	if err != nil {
		status, code, msg := classify(s.logger, "handle-request", err)
		s.writeDeviceError(w, proto, status, code, msg)
		return
	}

	if proto {
		writeProto(w, http.StatusOK, handleReply(d))
		return
	}
	writeJSON(w, http.StatusOK, handleResponse(d))
}

// writeBadBody answers an undecodable body. Nothing reaches the service, so
// no event is written.
func (s *Server) writeBadBody(w http.ResponseWriter, proto bool, err error) {
	if proto {
		writeProto(w, http.StatusBadRequest, deviceReply{Code: "bad_proto", Message: "invalid protobuf body: " + err.Error()})
		return
	}
	writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body: "+err.Error())
}

func (s *Server) writeDeviceError(w http.ResponseWriter, proto bool, status int, code, msg string) {
	if proto {
		writeProto(w, status, deviceReply{Code: code, Message: msg})
		return
	}
	writeError(w, status, code, msg)
}
