// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This file defines the PubSubListener, which feeds render requests arriving
// on a Pub/Sub subscription into a cor.Command.
//
// Logic Flow:
//  1. Receive blocks pulling messages until the context is cancelled.
//  2. Each message gets a span and a fresh cor.Context whose CtxIn holds the
//     message body.
//  3. The command runs; the message is acked on success and nacked on
//     failure so Pub/Sub redelivers it (or dead-letters it).
package cloud

import (
	"context"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/harryxbt/content-engine/internal/core/cor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PubSubListener runs a command for every message on a subscription.
type PubSubListener struct {
	client       *pubsub.Client       // The client for interacting with the Pub/Sub service.
	subscription *pubsub.Subscription // The subscription this listener pulls from.
	command      cor.Command          // The command executed per message.
}

// NewPubSubListener creates a listener for subscriptionID. The command may be
// set later with SetCommand.
func NewPubSubListener(pubsubClient *pubsub.Client, subscriptionID string, command cor.Command) *PubSubListener {
	return &PubSubListener{
		client:       pubsubClient,
		subscription: pubsubClient.Subscription(subscriptionID),
		command:      command,
	}
}

// SetCommand sets the command if none is set yet.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Handle runs the command for a single message body and reports whether it
// succeeded.
func (m *PubSubListener) Handle(ctx context.Context, data []byte) bool {
	tracer := otel.Tracer("message-listener")
	spanCtx, span := tracer.Start(ctx, "receive-message")
	defer span.End()
	span.SetAttributes(attribute.Int("msg.size", len(data)))

	chainCtx := cor.NewBaseContext()
	defer chainCtx.Close()
	chainCtx.SetContext(spanCtx)
	chainCtx.Add(cor.CtxIn, string(data))

	m.command.Execute(chainCtx)

	if chainCtx.HasErrors() {
		span.SetStatus(codes.Error, "failed")
		for name, e := range chainCtx.GetErrors() {
			slog.ErrorContext(spanCtx, "error executing chain", "command", name, "error", e)
		}
		return false
	}
	span.SetStatus(codes.Ok, "success")
	return true
}

// Listen blocks receiving messages until ctx is cancelled or Receive fails.
func (m *PubSubListener) Listen(ctx context.Context) error {
	slog.Info("listening", "subscription", m.subscription.String())
	return m.subscription.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
		if m.Handle(msgCtx, msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}
