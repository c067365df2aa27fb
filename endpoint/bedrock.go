package endpoint

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// BedrockStream is the event stream returned by
// InvokeModelWithBidirectionalStream. The SDK's event stream satisfies it.
type BedrockStream interface {
	Send(ctx context.Context, event types.InvokeModelWithBidirectionalStreamInput) error
	Events() <-chan types.InvokeModelWithBidirectionalStreamOutput
	Close() error
	Err() error
}

// BedrockOpener starts a bidirectional stream for a model.
type BedrockOpener func(ctx context.Context, modelID string) (BedrockStream, error)

// RuntimeOpener adapts a Bedrock runtime client to a BedrockOpener.
func RuntimeOpener(client *bedrockruntime.Client) BedrockOpener {
	return func(ctx context.Context, modelID string) (BedrockStream, error) {
		out, err := client.InvokeModelWithBidirectionalStream(ctx, &bedrockruntime.InvokeModelWithBidirectionalStreamInput{
			ModelId: aws.String(modelID),
		})
		if err != nil {
			return nil, err
		}
		return out.GetStream(), nil
	}
}

// Bedrock opens one Bedrock bidirectional stream per connection.
type Bedrock struct {
	modelID string
	open    BedrockOpener
}

// NewBedrock resolves AWS credentials through the default chain and returns
// a Bedrock endpoint for cfg.ModelID.
func NewBedrock(ctx context.Context, cfg *Config) (*Bedrock, error) {
	if cfg.ModelID == "" {
		return nil, fmt.Errorf("%w: bedrock endpoint requires a model id", ErrConfig)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewBedrockWithOpener(cfg.ModelID, RuntimeOpener(bedrockruntime.NewFromConfig(awsCfg))), nil
}

// NewBedrockWithOpener creates a Bedrock endpoint over a custom opener.
func NewBedrockWithOpener(modelID string, open BedrockOpener) *Bedrock {
	return &Bedrock{modelID: modelID, open: open}
}

// Open starts a stream. ctx bounds the lifetime of the stream.
func (b *Bedrock) Open(ctx context.Context) (Stream, error) {
	s, err := b.open(ctx, b.modelID)
	if err != nil {
		return nil, fmt.Errorf("open bedrock stream %s: %w", b.modelID, err)
	}
	return &bedrockStream{stream: s}, nil
}

type bedrockStream struct {
	stream    BedrockStream
	closeOnce sync.Once
	closeErr  error
}

func (s *bedrockStream) Send(ctx context.Context, data []byte) error {
	return s.stream.Send(ctx, &types.InvokeModelWithBidirectionalStreamInputMemberChunk{
		Value: types.BidirectionalInputPayloadPart{Bytes: data},
	})
}

// Recv returns the next chunk's bytes, skipping event kinds the relay does
// not understand.
func (s *bedrockStream) Recv(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok := <-s.stream.Events():
			if !ok {
				if err := s.stream.Err(); err != nil {
					return nil, err
				}
				return nil, io.EOF
			}
			if chunk, ok := ev.(*types.InvokeModelWithBidirectionalStreamOutputMemberChunk); ok {
				return chunk.Value.Bytes, nil
			}
		}
	}
}

func (s *bedrockStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.stream.Close()
	})
	return s.closeErr
}
