package znp

// pendingRequest is the handler installed by SendSREQ for the
// duration of one outstanding request. It claims either the matching
// SRSP or a correlated RPC_Error frame, completes result exactly once,
// and self-removes. Grounded on znp_api.cpp's RawSReq handler.
type pendingRequest struct {
	accepted map[Command]struct{}
	result   chan requestResult
}

type requestResult struct {
	payload []byte
	err     error
}

func newPendingRequest(accepted map[Command]struct{}) *pendingRequest {
	return &pendingRequest{
		accepted: accepted,
		result:   make(chan requestResult, 1),
	}
}

func (p *pendingRequest) complete(payload []byte, err error) {
	select {
	case p.result <- requestResult{payload: payload, err: err}:
	default:
		// Already completed; single-shot completion slot per spec.md
		// §3's invariant, ignore any further attempt.
	}
}

func (p *pendingRequest) onFrame(frame Frame) frameAction {
	if frame.Type == FrameTypeSRSP {
		if _, ok := p.accepted[frame.Command]; ok {
			p.complete(frame.Payload, nil)
			return frameAction{stopProcessing: true, removeMe: true}
		}
		if frame.Command == rpcErrorCommand {
			if action, handled := p.tryClaimRPCError(frame.Payload); handled {
				return action
			}
		}
	}
	return frameAction{}
}

// tryClaimRPCError inspects an RPC_Error SRSP payload
// [error_code, packed, id] where packed = (subsystem & 0x0F) |
// (type << 4). It claims the frame only if the reconstructed
// (SREQ, original command) is one of this request's accepted
// responses; a malformed payload, or one naming an unrelated command,
// is left unclaimed so another pending request can try it.
func (p *pendingRequest) tryClaimRPCError(payload []byte) (frameAction, bool) {
	if len(payload) < 3 {
		return frameAction{}, false
	}
	errCode := payload[0]
	packed := payload[1]
	id := payload[2]

	origType := FrameType(packed >> 4)
	origSubsystem := Subsystem(packed & 0x0F)
	origCommand := Command{Subsystem: origSubsystem, ID: id}

	if origType != FrameTypeSREQ {
		return frameAction{}, false
	}
	if _, ok := p.accepted[origCommand]; !ok {
		return frameAction{}, false
	}
	p.complete(nil, &RPCError{Code: errCode})
	return frameAction{stopProcessing: true, removeMe: true}, true
}

// SendSREQ sends an SREQ and returns the payload of whichever SRSP (or
// correlated RPC_Error) claims it. acceptedResponses defaults to
// {command} when empty; pass additional commands for the rare case
// where a request can be acknowledged under more than one SRSP command
// (e.g. ZDO_EXT_REMOVE_ALL_GROUP / ZDO_EXT_REMOVE_GROUP).
//
// Concurrent SendSREQ calls for the same command are permitted; per
// spec.md §4.2 the first request registered wins any ambiguous match
// (ordered-list tie-break), matching the vendor protocol's
// one-in-flight-per-command-class assumption rather than trying to
// improve on it.
func (m *Mediator) SendSREQ(command Command, payload []byte, acceptedResponses ...Command) ([]byte, error) {
	accepted := make(map[Command]struct{}, len(acceptedResponses)+1)
	accepted[command] = struct{}{}
	for _, c := range acceptedResponses {
		accepted[c] = struct{}{}
	}

	req := newPendingRequest(accepted)
	m.addHandler(req)

	if err := m.sendFrame(Frame{Type: FrameTypeSREQ, Command: command, Payload: payload}); err != nil {
		m.removeHandler(req)
		return nil, err
	}

	res := <-req.result
	if res.err != nil {
		if _, ok := res.err.(*RPCError); ok {
			m.metric.incRPCErrors()
		}
	}
	return res.payload, res.err
}
