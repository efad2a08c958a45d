package http

import (
	"github.com/vovakirdan/connecta-server/internal/core"
	"github.com/vovakirdan/connecta-server/internal/proto"
)

// mapper converts wire frames to core commands and core events to wire frames.
type mapper struct {
	validator *proto.Validator
}

func newMapper() *mapper {
	return &mapper{validator: proto.NewValidator()}
}

func badRequest(err error) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: err.Error()}
}

func (m *mapper) inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Event {
	case proto.EventJoin:
		var data proto.JoinData
		if err := m.validator.Decode(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		return &core.Command{Kind: core.CommandJoin, Username: data.Username}, nil

	case proto.EventPublicMessage:
		var data proto.PublicMessageData
		if err := m.validator.Decode(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		return &core.Command{Kind: core.CommandPublicMessage, Content: data.Content}, nil

	case proto.EventPrivateMessage:
		var data proto.PrivateMessageData
		if err := m.validator.Decode(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		return &core.Command{Kind: core.CommandPrivateMessage, To: data.To, Content: data.Content}, nil

	case proto.EventGetPrivateHistory:
		var data proto.PrivateHistoryRequest
		if err := m.validator.Decode(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		return &core.Command{Kind: core.CommandPrivateHistory, With: data.With}, nil

	case proto.EventRequestPublicHistory:
		return &core.Command{Kind: core.CommandPublicHistory}, nil

	case proto.EventRequestUsers:
		return &core.Command{Kind: core.CommandListUsers}, nil

	case proto.EventReactMessage:
		var data proto.ReactData
		if err := m.validator.Decode(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		return &core.Command{
			Kind:      core.CommandReact,
			MessageID: data.MsgID,
			Reaction:  data.Reaction,
			Scope:     core.Scope(data.Scope),
			With:      data.WithUser,
		}, nil

	case proto.EventAvatarChange:
		var data proto.AvatarData
		if err := m.validator.Decode(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		return &core.Command{Kind: core.CommandAvatarChange, Username: data.Username, URL: data.Avatar}, nil

	case proto.EventBackgroundUpdate:
		var data proto.BackgroundData
		if err := m.validator.Decode(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		return &core.Command{Kind: core.CommandBackgroundUpdate, Username: data.Username, URL: data.Background}, nil

	case proto.EventTyping, proto.EventTypingStop:
		var data proto.TypingData
		if err := m.validator.Decode(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		kind := core.CommandTyping
		if inbound.Event == proto.EventTypingStop {
			kind = core.CommandTypingStop
		}
		return &core.Command{Kind: kind, To: data.To, Scope: core.Scope(data.Scope)}, nil

	default:
		return nil, &proto.Error{Code: core.ErrCodeUnknownEvent, Msg: "unknown event " + inbound.Event}
	}
}

func messageData(m core.Message) proto.MessageData {
	return proto.MessageData{
		ID:        m.ID,
		From:      m.From,
		To:        m.To,
		Content:   m.Content,
		CreatedAt: proto.FormatTime(m.CreatedAt),
		Reactions: m.Reactions,
	}
}

func messagesData(msgs []core.Message) []proto.MessageData {
	out := make([]proto.MessageData, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageData(m))
	}
	return out
}

func nonNil[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return map[K]V{}
	}
	return m
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventUsersStatus:
		users := make([]proto.UserStatus, 0, len(event.Presence))
		for _, p := range event.Presence {
			status := proto.UserStatus{Username: p.Username, Online: p.Online, Avatar: p.Avatar}
			if p.LastSeen != nil {
				seen := proto.FormatTime(*p.LastSeen)
				status.LastSeen = &seen
			}
			users = append(users, status)
		}
		return proto.Outbound{Event: proto.EventUsersStatus, Data: users}

	case core.EventUsers:
		names := event.Names
		if names == nil {
			names = []string{}
		}
		return proto.Outbound{Event: proto.EventUsers, Data: names}

	case core.EventPublicHistory:
		return proto.Outbound{Event: proto.EventPublicHistory, Data: messagesData(event.Messages)}

	case core.EventAvatars:
		return proto.Outbound{Event: proto.EventAvatars, Data: nonNil(event.Profiles)}

	case core.EventBackgrounds:
		return proto.Outbound{Event: proto.EventBackgrounds, Data: nonNil(event.Profiles)}

	case core.EventPublicMessage, core.EventPrivateMessage:
		name := proto.EventNewPublicMessage
		if event.Message.Private() {
			name = proto.EventNewPrivateMessage
		}
		return proto.Outbound{Event: name, Data: messageData(event.Message)}

	case core.EventPrivateHistory:
		return proto.Outbound{
			Event: proto.EventPrivateHistory,
			Data:  proto.PrivateHistoryData{With: event.With, History: messagesData(event.Messages)},
		}

	case core.EventReactionUpdate:
		return proto.Outbound{
			Event: proto.EventMessageReactionUpdate,
			Data: proto.ReactionUpdateData{
				Scope:     string(event.Scope),
				MsgID:     event.MessageID,
				Reactions: nonNil(event.Reactions),
				Conv:      event.Conversation,
			},
		}

	case core.EventAvatarUpdate:
		return proto.Outbound{
			Event: proto.EventAvatarUpdate,
			Data:  proto.AvatarUpdateData{Username: event.User, Avatar: event.URL},
		}

	case core.EventBackgroundUpdate:
		return proto.Outbound{
			Event: proto.EventBackgroundUpdate,
			Data:  proto.BackgroundUpdateData{Username: event.User, Background: event.URL},
		}

	case core.EventTyping, core.EventTypingStop:
		name := proto.EventTyping
		if event.Kind == core.EventTypingStop {
			name = proto.EventTypingStop
		}
		return proto.Outbound{
			Event: name,
			Data:  proto.TypingEventData{From: event.User, Scope: string(event.Scope)},
		}

	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Event: proto.EventError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Event: proto.EventError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}

	default:
		return proto.Outbound{Event: event.Kind.String()}
	}
}
