package models

import (
	"context"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Methods of the sceneeval.v1.ModelService inference service. Every request
// and response is a google.protobuf.Struct.
const (
	ServiceName            = "sceneeval.v1.ModelService"
	MethodLoad             = "/" + ServiceName + "/Load"
	MethodPredictContact   = "/" + ServiceName + "/PredictContact"
	MethodSynthesizeLayout = "/" + ServiceName + "/SynthesizeLayout"
)

// Model kinds understood by Load.
const (
	KindContact = "contact"
	KindLayout  = "layout"
)

// Client wraps the gRPC connection to the model service.
type Client struct {
	conn   grpc.ClientConnInterface
	closer func() error
}

// Dial connects to the model service at addr.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, errors.Wrapf(err, "grpc dial %s", addr)
	}
	return &Client{conn: conn, closer: conn.Close}, nil
}

// NewClientWithConn creates a Client over an existing connection. Close does
// not close conn.
func NewClientWithConn(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Close shuts down the gRPC connection if the client owns it.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func (c *Client) call(ctx context.Context, method string, fields map[string]interface{}) (*structpb.Struct, error) {
	req, err := newRequest(fields)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build %s request", method)
	}
	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, method, req, resp); err != nil {
		return nil, errors.Wrapf(err, "%s rpc", method)
	}
	return resp, nil
}

// Load asks the service to build a model of the given kind from params and
// load checkpoint in inference mode. It returns the handle naming the loaded
// model in later calls.
func (c *Client) Load(ctx context.Context, kind, checkpoint string, params map[string]interface{}) (string, error) {
	resp, err := c.call(ctx, MethodLoad, map[string]interface{}{
		"model":      kind,
		"checkpoint": checkpoint,
		"eval":       true,
		"params":     params,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to load %s model from %s", kind, checkpoint)
	}
	handle := resp.GetFields()["handle"].GetStringValue()
	if handle == "" {
		return "", errors.Errorf("load of %s model from %s returned no handle", kind, checkpoint)
	}
	return handle, nil
}

// RemoteContactPredictor runs the contact predictor on the model service.
type RemoteContactPredictor struct {
	client *Client
	handle string
	cfg    ContactConfig
}

// NewRemoteContactPredictor loads the contact predictor checkpoint on the
// service.
func NewRemoteContactPredictor(ctx context.Context, client *Client, cfg ContactConfig, checkpoint string) (*RemoteContactPredictor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	handle, err := client.Load(ctx, KindContact, checkpoint, cfg.params())
	if err != nil {
		return nil, err
	}
	return &RemoteContactPredictor{client: client, handle: handle, cfg: cfg}, nil
}

// PredictContact implements ContactPredictor.
func (p *RemoteContactPredictor) PredictContact(ctx context.Context, in ContactInput) (*tensors.Tensor, error) {
	fields := map[string]interface{}{
		"handle":     p.handle,
		"mask":       in.Mask,
		"given_objs": in.GivenObjects,
		"given_cats": in.GivenCategories,
		"datatype":   in.Datatype,
	}
	if in.AssociatedJoints != nil {
		fields["associated_joints"] = intsValue(in.AssociatedJoints)
	}
	resp, err := p.client.call(ctx, MethodPredictContact, fields)
	if err != nil {
		return nil, err
	}
	v, ok := resp.GetFields()["contact"]
	if !ok {
		return nil, errors.New("contact response has no contact tensor")
	}
	t, err := valueToTensor(v)
	if err != nil {
		return nil, errors.Wrap(err, "contact")
	}
	return t, nil
}

// RemoteLayoutSynthesizer runs the layout synthesizer on the model service.
type RemoteLayoutSynthesizer struct {
	client *Client
	handle string
	cfg    *LayoutConfig
}

// NewRemoteLayoutSynthesizer loads the layout synthesizer checkpoint on the
// service. cfg must carry the dataset's class count.
func NewRemoteLayoutSynthesizer(ctx context.Context, client *Client, cfg *LayoutConfig, checkpoint string) (*RemoteLayoutSynthesizer, error) {
	if cfg.NumClasses <= 0 {
		return nil, errors.Errorf("layout config has %d classes", cfg.NumClasses)
	}
	handle, err := client.Load(ctx, KindLayout, checkpoint, cfg.params())
	if err != nil {
		return nil, err
	}
	return &RemoteLayoutSynthesizer{client: client, handle: handle, cfg: cfg}, nil
}

// Synthesize implements LayoutSynthesizer.
func (s *RemoteLayoutSynthesizer) Synthesize(ctx context.Context, in LayoutInput) (*Layout, error) {
	resp, err := s.client.call(ctx, MethodSynthesizeLayout, map[string]interface{}{
		"handle":      s.handle,
		"mask":        in.Mask,
		"given_objs":  in.GivenObjects,
		"given_cats":  in.GivenCategories,
		"contact":     in.Contact,
		"datatype":    in.Datatype,
		"num_classes": in.NumClasses,
	})
	if err != nil {
		return nil, err
	}
	members := make([]*tensors.Tensor, len(MemberNames))
	for i, name := range MemberNames {
		v, ok := resp.GetFields()[name]
		if !ok {
			// left nil; Bridge reports the missing member
			continue
		}
		t, err := valueToTensor(v)
		if err != nil {
			return nil, errors.Wrap(err, name)
		}
		members[i] = t
	}
	return layoutFromMembers(members)
}
