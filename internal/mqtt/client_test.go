package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateTopicParse(t *testing.T) {

	assert := assert.New(t)

	hostPrefix := "loremhost"
	topic := "loremhost/state/sensor.battery_soc"
	r := stateTopicExtractor(hostPrefix)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "sensor.battery_soc", "entity extract")
}

func TestStateTopicParseFail(t *testing.T) {

	assert := assert.New(t)

	hostPrefix := "loremhost"
	topic := "loremhost/service/number/set_value"
	r := stateTopicExtractor(hostPrefix)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

func TestParseStatePayloadJSON(t *testing.T) {

	assert := assert.New(t)

	doc := ParseStatePayload([]byte(`{"state":"86.5","attributes":{"unit_of_measurement":"%"}}`))

	assert.Equal(doc.State, "86.5")
	assert.Equal(doc.Attributes["unit_of_measurement"], "%")
}

func TestParseStatePayloadBare(t *testing.T) {

	assert := assert.New(t)

	doc := ParseStatePayload([]byte("unavailable"))

	assert.Equal(doc.State, "unavailable")
	assert.Nil(doc.Attributes)
}
