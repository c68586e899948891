package services

import (
	"context"

	"dmcore/contract"
	"dmcore/domain"
	"dmcore/repositories"
)

type IDMService interface {
	SendTo(ctx context.Context, viewer, peer domain.Participant, text string) (domain.Message, error)
	History(viewer, peer domain.Participant) ([]domain.Message, error)
	Peers(viewer domain.Participant) ([]domain.Peer, error)
}

// DMService is the stateless entry point over the exchange: it resolves
// the pair to its canonical channel and delegates. Live subscriptions are
// owned by a controller per connection, not by this service.
type DMService struct {
	exchange contract.IExchange
	messages repositories.IMessageRepository
	users    repositories.IUserRepository
}

func NewDMService(exchange contract.IExchange, messages repositories.IMessageRepository,
	users repositories.IUserRepository) *DMService {
	return &DMService{exchange: exchange, messages: messages, users: users}
}

func (s *DMService) SendTo(ctx context.Context, viewer, peer domain.Participant, text string) (domain.Message, error) {
	channel, err := domain.ResolveChannel(viewer, peer)
	if err != nil {
		return domain.Message{}, err
	}
	return s.exchange.Send(ctx, domain.AppendCommand{
		Channel:  channel,
		Sender:   viewer,
		Receiver: peer,
		Text:     text,
	})
}

func (s *DMService) History(viewer, peer domain.Participant) ([]domain.Message, error) {
	channel, err := domain.ResolveChannel(viewer, peer)
	if err != nil {
		return nil, err
	}
	return s.messages.ReadAll(channel)
}

func (s *DMService) Peers(viewer domain.Participant) ([]domain.Peer, error) {
	return s.users.ListPeers(viewer)
}
