// Package grpcapi exposes captioning as a bidirectional gRPC stream: the
// client sends a session config followed by audio, the server answers with
// cues as they are emitted and a final report.
package grpcapi

import (
	"context"

	"google.golang.org/grpc"

	"ai-speech-captioning-service/internal/service/caption"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "ai.speech.captioning.CaptionStreamService"

const streamCaptionsMethod = "/" + ServiceName + "/StreamCaptions"

// StreamRequest is one client message. The first carries Config, the rest Audio.
type StreamRequest struct {
	Config *StreamConfig `json:"config,omitempty"`
	Audio  []byte        `json:"audio,omitempty"`
}

// StreamConfig opens a captioning session.
type StreamConfig struct {
	SessionId string `json:"sessionId,omitempty"`
	TenantId  string `json:"tenantId"`
	// Options override the server defaults when set.
	Options *caption.Options `json:"options,omitempty"`
}

// StreamResponse is one server message. Exactly one field is set.
type StreamResponse struct {
	Session *SessionInfo   `json:"session,omitempty"`
	Cue     *CueMessage    `json:"cue,omitempty"`
	Report  *ReportMessage `json:"report,omitempty"`
}

// SessionInfo acknowledges the config and tells the client how to render cues.
type SessionInfo struct {
	SessionId string `json:"sessionId"`
	Format    string `json:"format"`
	// Header is written once before the first cue. Empty for SRT.
	Header string `json:"header"`
}

// CueMessage is an emitted cue.
type CueMessage struct {
	UtteranceId string `json:"utteranceId"`
	Sequence    int    `json:"sequence"`
	Language    string `json:"language,omitempty"`
	Text        string `json:"text"`
	BeginMs     int64  `json:"beginMs"`
	EndMs       int64  `json:"endMs"`
	Formatted   string `json:"formatted"`
}

// ReportMessage summarizes the session.
type ReportMessage struct {
	State       string `json:"state"`
	Recognizing int    `json:"recognizing"`
	Recognized  int    `json:"recognized"`
	Emitted     int    `json:"emitted"`
	Suppressed  int    `json:"suppressed"`
	Error       string `json:"error,omitempty"`
}

// CaptionStreamServer is the server API for CaptionStreamService.
type CaptionStreamServer interface {
	StreamCaptions(CaptionStream_StreamCaptionsServer) error
}

// CaptionStream_StreamCaptionsServer is the server side of a caption stream.
type CaptionStream_StreamCaptionsServer interface {
	Send(*StreamResponse) error
	Recv() (*StreamRequest, error)
	grpc.ServerStream
}

// CaptionStream_StreamCaptionsClient is the client side of a caption stream.
type CaptionStream_StreamCaptionsClient interface {
	Send(*StreamRequest) error
	Recv() (*StreamResponse, error)
	grpc.ClientStream
}

// ServiceDesc describes CaptionStreamService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CaptionStreamServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamCaptions",
			Handler:       streamCaptionsHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "caption_stream.json",
}

// RegisterCaptionStreamServer registers srv with s.
func RegisterCaptionStreamServer(s grpc.ServiceRegistrar, srv CaptionStreamServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func streamCaptionsHandler(srv any, stream grpc.ServerStream) error {
	return srv.(CaptionStreamServer).StreamCaptions(&streamCaptionsServer{stream})
}

type streamCaptionsServer struct {
	grpc.ServerStream
}

func (x *streamCaptionsServer) Send(m *StreamResponse) error {
	return x.ServerStream.SendMsg(m)
}

func (x *streamCaptionsServer) Recv() (*StreamRequest, error) {
	m := new(StreamRequest)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Client calls CaptionStreamService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a client on an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// StreamCaptions opens a caption stream using the JSON codec.
func (c *Client) StreamCaptions(ctx context.Context, opts ...grpc.CallOption) (CaptionStream_StreamCaptionsClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], streamCaptionsMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &streamCaptionsClient{stream}, nil
}

type streamCaptionsClient struct {
	grpc.ClientStream
}

func (x *streamCaptionsClient) Send(m *StreamRequest) error {
	return x.ClientStream.SendMsg(m)
}

func (x *streamCaptionsClient) Recv() (*StreamResponse, error) {
	m := new(StreamResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
