package game

import (
	"fmt"
	"sort"
)

// setPhase moves the room to phase, cancelling everything armed for the
// previous one. Callers hold r.mu.
func (r *Room) setPhase(phase Phase) {
	r.clearTimers()
	r.settling = false
	r.logger.Debug("Phase change", "from", r.phase, "to", phase, "round", r.round, "epoch", r.epoch)
	r.phase = phase
}

func (r *Room) enterBetting() {
	r.setPhase(PhaseBetting)
	r.deck = nil
	r.dealer.reset()
	for _, p := range r.players {
		p.resetRound()
	}
	r.logger.Info("Round started", "round", r.round)
	r.broadcastState()
	r.armDeadline()
}

// tryAdvance completes the expected phase if its aggregate holds, or
// unconditionally when forced. It is the single exit from betting and
// action for both player events and deadlines, and reports whether the
// room moved on.
func (r *Room) tryAdvance(expected Phase, forced bool) bool {
	if r.closed || r.phase != expected || r.settling {
		return false
	}
	switch expected {
	case PhaseBetting:
		if !forced && r.anyWithStatus(StatusBetting) {
			return false
		}
		r.deal()
	case PhaseAction:
		if !forced && r.anyWithStatus(StatusPlaying) {
			return false
		}
		r.completeAction(forced)
	default:
		return false
	}
	return true
}

func (r *Room) betDeadline() {
	for _, p := range r.players {
		if p.Status == StatusBetting {
			p.Bet = 0
			p.Status = StatusBetted
		}
	}
	r.logger.Debug("Bet deadline reached", "round", r.round)
	r.tryAdvance(PhaseBetting, true)
}

func (r *Room) actionDeadline() {
	for _, p := range r.players {
		if p.Status == StatusPlaying {
			p.Status = StatusStand
		}
	}
	r.logger.Debug("Action deadline reached", "round", r.round)
	r.tryAdvance(PhaseAction, true)
}

// deal hands two cards to every player who bet and to the dealer.
func (r *Room) deal() {
	r.setPhase(PhaseAction)
	r.deck = r.newDeck(r.rng)
	if err := r.dealHands(); err != nil {
		r.voidRound(err)
		return
	}
	r.broadcastState()
	if r.tryAdvance(PhaseAction, false) {
		return
	}
	r.armDeadline()
}

func (r *Room) dealHands() error {
	for _, p := range r.seated() {
		if p.Status != StatusBetted {
			continue
		}
		if p.Bet == 0 {
			p.Status = StatusStand
			continue
		}
		for range 2 {
			c, err := r.deck.Draw()
			if err != nil {
				return fmt.Errorf("deal to %s: %w", p.ID, err)
			}
			p.take(c)
		}
		p.Status = StatusPlaying
	}
	for range 2 {
		c, err := r.deck.Draw()
		if err != nil {
			return fmt.Errorf("deal to dealer: %w", err)
		}
		r.dealer.take(c)
	}
	return nil
}

func (r *Room) completeAction(forced bool) {
	r.clearTimers()
	if !forced {
		r.notify("All players have finished. Dealer's turn.")
		r.enterDealer()
		return
	}
	r.settling = true
	r.notify("Time's up! Remaining players stand. Dealer's turn.")
	r.broadcastState()
	r.arm(timerReveal, r.rules.RevealDelay, r.enterDealer)
}

func (r *Room) enterDealer() {
	r.setPhase(PhaseDealer)
	r.broadcastState()
	r.arm(timerDealer, r.rules.DealerTick, r.dealerStep)
}

// dealerStep draws one card per tick until the dealer reaches the stand
// threshold, then settles the round.
func (r *Room) dealerStep() {
	if r.dealer.Score >= r.rules.DealerStandsOn {
		r.resolve()
		return
	}
	c, err := r.deck.Draw()
	if err != nil {
		r.voidRound(fmt.Errorf("dealer draw: %w", err))
		return
	}
	r.dealer.take(c)
	r.logger.Debug("Dealer draws", "card", c, "score", r.dealer.Score)
	r.broadcastState()
	r.arm(timerDealer, r.rules.DealerTick, r.dealerStep)
}

func (r *Room) resolve() {
	r.setPhase(PhaseResult)
	for _, p := range r.seated() {
		if p.Bet == 0 || p.Eliminated {
			continue
		}
		p.settle(Settle(p.Score, r.dealer.Score))
		r.logger.Debug("Hand settled", "player", p.ID, "score", p.Score, "dealer", r.dealer.Score, "result", p.LastResult, "chips", p.Chips)
		if p.Eliminated {
			r.logger.Info("Player eliminated", "player", p.ID, "chips", p.Chips)
		}
	}
	r.broadcastState()
	r.endRound()
}

// voidRound abandons a round that cannot be dealt. No chips move.
func (r *Room) voidRound(err error) {
	r.logger.Warn("Round voided", "round", r.round, "error", err)
	r.setPhase(PhaseResult)
	for _, p := range r.players {
		p.Bet = 0
		p.LastResult = OutcomeNone
		if p.Status == StatusPlaying || p.Status == StatusBetted {
			p.Status = StatusStand
		}
	}
	r.notify("Round voided: the deck ran out of cards. No chips were moved.")
	r.broadcastState()
	r.endRound()
}

func (r *Room) endRound() {
	if r.round >= r.rules.MaxRounds || !r.anyActive() {
		r.logger.Info("Game over", "round", r.round)
		r.arm(timerFinal, r.rules.FinalDelay, r.finalize)
		return
	}
	r.countdown(timerNextRound, EventNextRoundCountdown, r.rules.NextRoundSeconds, func() {
		r.round++
		r.enterBetting()
	})
}

// finalize sends each player their personal ranking and schedules the room
// for removal.
func (r *Room) finalize() {
	r.finished = true
	standings := r.standings()
	board := standings[:min(r.rules.LeaderboardSize, len(standings))]
	for _, s := range standings {
		r.out.Send(s.PlayerID, Event{Type: EventFinalRanking, Payload: FinalRanking{
			Leaderboard: board,
			MyRank:      s.Rank,
			MyChips:     s.Chips,
		}})
	}
	if r.onFinish != nil {
		r.onFinish(GameRecord{
			RoomID:     r.id,
			Rounds:     r.round,
			StartedAt:  r.createdAt,
			FinishedAt: r.clock.Now(),
			Standings:  standings,
		})
	}
	r.arm(timerClose, r.rules.CloseDelay, r.destroy)
}

// standings ranks every player by chips, then name, then id.
func (r *Room) standings() []Standing {
	ps := r.seated()
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Chips != ps[j].Chips {
			return ps[i].Chips > ps[j].Chips
		}
		if ps[i].Name != ps[j].Name {
			return ps[i].Name < ps[j].Name
		}
		return ps[i].ID < ps[j].ID
	})
	out := make([]Standing, len(ps))
	for i, p := range ps {
		out[i] = Standing{
			Rank:       i + 1,
			PlayerID:   p.ID,
			Name:       p.Name,
			Chips:      p.Chips,
			Eliminated: p.Eliminated,
		}
	}
	return out
}
