package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/marketplace-escrow/pkg/config"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("at least one pubsub topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client owns the Pub/Sub connection and one ordered publisher per topic.
type Client struct {
	client *pubsub.Client
	topics []string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects to Pub/Sub and fails unless every topic already exists. Topics are
// provisioned outside the service.
func NewClient(ctx context.Context, gcp config.GCPConfig, topics []string, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	names, err := resourceNames(project, topics)
	if err != nil {
		return nil, err
	}

	raw, err := pubsub.NewClient(ctx, project, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: raw, topics: names, publishers: make(map[string]*pubsub.Publisher, len(names))}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topics", names), "pubsub client initialized")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	default:
		return nil
	}
}

func resourceNames(project string, topics []string) ([]string, error) {
	seen := make(map[string]struct{}, len(topics))
	var names []string
	for _, topic := range topics {
		name := topicResourceName(project, topic)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, errNoTopics
	}
	return names, nil
}

// Ping checks every topic in parallel and returns the first failure.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range c.topics {
		g.Go(func() error {
			_, err := c.client.TopicAdminClient.GetTopic(gctx, &pubsubpb.GetTopicRequest{Topic: name})
			switch {
			case status.Code(err) == codes.NotFound:
				return fmt.Errorf("topic %s does not exist", name)
			case err != nil:
				return fmt.Errorf("checking topic %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Publisher returns the shared publisher for the topic, or nil for a topic the client was
// not built with. Message ordering is on, so one aggregate's events arrive in sequence.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil || len(c.topics) == 0 {
		return nil
	}
	project := projectOf(c.topics[0])
	name := topicResourceName(project, topic)
	if !c.knows(name) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if pub, ok := c.publishers[name]; ok {
		return pub
	}
	pub := c.client.Publisher(name)
	pub.EnableMessageOrdering = true
	c.publishers[name] = pub
	return pub
}

func (c *Client) knows(name string) bool {
	for _, topic := range c.topics {
		if topic == name {
			return true
		}
	}
	return false
}

// Close flushes pending publishes and releases the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for name, pub := range c.publishers {
		pub.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.client.Close()
}

// topicResourceName expands a short topic name to projects/<p>/topics/<name>. Full
// resource names pass through unchanged.
func topicResourceName(project, topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ""
	}
	if strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/") {
		return topic
	}
	project = strings.TrimSpace(project)
	if project == "" {
		return ""
	}
	return "projects/" + project + "/topics/" + topic
}

func projectOf(resource string) string {
	rest, ok := strings.CutPrefix(resource, "projects/")
	if !ok {
		return ""
	}
	project, _, _ := strings.Cut(rest, "/")
	return project
}
