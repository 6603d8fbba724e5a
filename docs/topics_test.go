package docs

import (
	"strings"
	"testing"
)

func TestAllTopics(t *testing.T) {
	topics, err := AllTopics()
	if err != nil {
		t.Fatal(err)
	}
	if len(topics) == 0 {
		t.Fatal("no topics embedded")
	}
	for _, topic := range topics {
		content, err := GetTopic(topic)
		if err != nil {
			t.Errorf("GetTopic(%q): %v", topic, err)
		}
		if content == "" {
			t.Errorf("topic %q is empty", topic)
		}
	}
}

func TestGetTopicUnknown(t *testing.T) {
	if _, err := GetTopic("no-such-topic"); err == nil {
		t.Error("unknown topic succeeded")
	}
}

func TestGetTopicAll(t *testing.T) {
	all, err := GetTopic("*")
	if err != nil {
		t.Fatal(err)
	}
	single, err := GetTopic("readme")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(all, single) {
		t.Error("combined content does not contain the readme topic")
	}
}
