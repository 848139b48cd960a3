/*
 * Copyright (c) 2021 IBM Corp and others.
 *
 * All rights reserved. This program and the accompanying materials
 * are made available under the terms of the Eclipse Public License v2.0
 * and Eclipse Distribution License v1.0 which accompany this distribution.
 *
 * The Eclipse Public License is available at
 *    https://www.eclipse.org/legal/epl-2.0/
 * and the Eclipse Distribution License is available at
 *   http://www.eclipse.org/org/documents/edl-v10.php.
 *
 * Contributors:
 *    Seth Hoenig
 *    Allan Stockdill-Mander
 *    Mike Robertson
 */

package ax8driver

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/womat/debug"
)

// MQTT_QUIESCE is the number of milliseconds to wait for pending work on disconnect.
const MQTT_QUIESCE = 250

// MQTTConfig selects the broker and topics. An empty Broker disables MQTT.
type MQTTConfig struct {
	Broker          string `yaml:"broker"`
	ClientID        string `yaml:"clientid"`
	SampleTopic     string `yaml:"sampletopic"`
	ParametersTopic string `yaml:"parameterstopic"`
	SnapshotTopic   string `yaml:"snapshottopic"`
	Qos             byte   `yaml:"qos"`
}

var f mqtt.MessageHandler = func(client mqtt.Client, msg mqtt.Message) {
	debug.DebugLog.Printf("TOPIC: %s MSG: %s", msg.Topic(), msg.Payload())
}

func NewMQTTClient(cfg MQTTConfig) (mqtt.Client, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "ax8-" + uuid.NewString()
	}
	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker).SetClientID(clientID)
	opts.SetKeepAlive(2 * time.Second)
	opts.SetDefaultPublishHandler(f)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetAutoReconnect(true)

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to mqtt broker %s: %w", cfg.Broker, token.Error())
	}
	debug.InfoLog.Printf("Connected to mqtt broker %s as %s", cfg.Broker, clientID)
	return c, nil
}

func publishJsonMsg(topic string, qos byte, obj interface{}, mqttClient mqtt.Client) error {
	msg, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	token := mqttClient.Publish(topic, qos, false, msg)
	token.Wait()
	return token.Error()
}

// MQTTPublisher publishes JSON messages on a paho client.
type MQTTPublisher struct {
	Client mqtt.Client
	Qos    byte
}

func (p *MQTTPublisher) Publish(topic string, obj interface{}) error {
	return publishJsonMsg(topic, p.Qos, obj, p.Client)
}

// ParametersHandler decodes a JSON object of spotmeter parameters and sends
// it on paramsChan. Malformed messages, and updates arriving while paramsChan
// is full, are logged and dropped.
func ParametersHandler(paramsChan chan<- map[string]float64) mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		var update map[string]float64
		if err := json.Unmarshal(msg.Payload(), &update); err != nil {
			debug.ErrorLog.Printf("Malformed spotmeter parameters on %s: %v", msg.Topic(), err)
			return
		}
		select {
		case paramsChan <- update:
		default:
			debug.ErrorLog.Printf("Recorder busy, dropped spotmeter parameters %v from %s", update, msg.Topic())
		}
	}
}

// SetupMQTTSubscriptionCallbacks forwards parameter updates published on topic.
func SetupMQTTSubscriptionCallbacks(paramsChan chan<- map[string]float64, client mqtt.Client, topic string) error {
	if topic == "" {
		return nil
	}
	if token := client.Subscribe(topic, 1, ParametersHandler(paramsChan)); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, token.Error())
	}
	debug.InfoLog.Printf("Listening for spotmeter parameters on %s", topic)
	return nil
}
