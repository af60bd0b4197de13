package config

import "time"

// Config is the top-level service configuration. Keys follow the s3.json
// layout, so both JSON and YAML files are accepted.
type Config struct {
	Directory  string         `yaml:"directory" json:"directory"`
	Hostname   string         `yaml:"hostname" json:"hostname"`
	Port       int            `yaml:"port" json:"port"`
	Silent     bool           `yaml:"silent" json:"silent"`
	LogLevel   string         `yaml:"logLevel" json:"logLevel"`
	Dispatcher DispatcherConf `yaml:"dispatcher" json:"dispatcher"`
	Buckets    []Bucket       `yaml:"buckets" json:"buckets"`
}

// DispatcherConf holds tunable delivery settings. Workers and QueueDepth
// size the delivery lane of each rule.
type DispatcherConf struct {
	Workers           int `yaml:"workers" json:"workers"`
	QueueDepth        int `yaml:"queueDepth" json:"queueDepth"`
	EventBuffer       int `yaml:"eventBuffer" json:"eventBuffer"`
	DeliveryTimeoutMs int `yaml:"deliveryTimeoutMs" json:"deliveryTimeoutMs"`
}

// DeliveryTimeout returns the per-delivery deadline.
func (d DispatcherConf) DeliveryTimeout() time.Duration {
	return time.Duration(d.DeliveryTimeoutMs) * time.Millisecond
}

// Bucket groups the notification filters of one bucket.
type Bucket struct {
	Name    string   `yaml:"name" json:"name"`
	Filters []Filter `yaml:"filters" json:"filters"`
}

// Filter selects events of its bucket and names the sink to notify.
// Empty Prefix, Suffix or Events mean "no constraint".
type Filter struct {
	Name         string       `yaml:"name" json:"name"`
	Prefix       string       `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Suffix       string       `yaml:"suffix,omitempty" json:"suffix,omitempty"`
	Events       []string     `yaml:"events,omitempty" json:"events,omitempty"`
	Notification Notification `yaml:"notification" json:"notification"`
}

// Notification is a discriminated union keyed by Type. Only the fields
// relevant to Type are read by the matching sink.
type Notification struct {
	Type string `yaml:"type" json:"type"`

	// log
	Level string `yaml:"level,omitempty" json:"level,omitempty"`

	// sqs / sns
	QueueURL        string `yaml:"queueUrl,omitempty" json:"queueUrl,omitempty"`
	TopicARN        string `yaml:"topicArn,omitempty" json:"topicArn,omitempty"`
	Region          string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"accessKeyId,omitempty" json:"accessKeyId,omitempty"`
	SecretAccessKey string `yaml:"secretAccessKey,omitempty" json:"-"`

	// rabbitmq / nats / redis / mqtt
	URL      string `yaml:"url,omitempty" json:"url,omitempty"`
	Exchange string `yaml:"exchange,omitempty" json:"exchange,omitempty"`
	Queue    string `yaml:"queue,omitempty" json:"queue,omitempty"`
	Subject  string `yaml:"subject,omitempty" json:"subject,omitempty"`
	Channel  string `yaml:"channel,omitempty" json:"channel,omitempty"`
	QoS      int    `yaml:"qos,omitempty" json:"qos,omitempty"`

	// kafka / mqtt
	Brokers []string `yaml:"brokers,omitempty" json:"brokers,omitempty"`
	Topic   string   `yaml:"topic,omitempty" json:"topic,omitempty"`
}
