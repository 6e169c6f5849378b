package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestResourceName(t *testing.T) {
	assert.Equal(t, "projects/p1/topics/orders", resourceName("p1", "topics", " orders "))
	assert.Equal(t, "projects/other/topics/orders", resourceName("p1", "topics", "projects/other/topics/orders"))
	assert.Empty(t, resourceName("", "topics", "orders"))
	assert.Empty(t, resourceName("p1", "topics", "  "))
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	assert.Empty(t, topicNames(config.PubSubConfig{OrdersTopic: " "}))
	assert.Equal(t, []string{"orders"}, topicNames(config.PubSubConfig{OrdersTopic: "orders"}))
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{OrdersTopic: "orders"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("orders"))
	assert.Nil(t, c.OrdersPublisher())
	require.Error(t, c.Ping(context.Background()))
	require.NoError(t, c.Close())
}

func TestClientOptionsPrecedence(t *testing.T) {
	assert.Empty(t, clientOptions(config.GCPConfig{ProjectID: "p1"}))
	assert.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/key.json"}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/key.json"}), 1)
}
