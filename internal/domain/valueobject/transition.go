package valueobject

// Transition — действие над бронированием, меняющее его статус.
// Reschedule статус не меняет и обрабатывается отдельно.
type Transition string

const (
	TransitionAccept      Transition = "accept"
	TransitionReject      Transition = "reject"
	TransitionWithdraw    Transition = "withdraw"
	TransitionCancel      Transition = "cancel"
	TransitionStart       Transition = "start"
	TransitionComplete    Transition = "complete"
	TransitionAdminCancel Transition = "admin_cancel"
)

type transitionRule struct {
	from   []BookingStatus
	roles  []ActorRole
	target BookingStatus
}

var transitionRules = map[Transition]transitionRule{
	TransitionAccept: {
		from:   []BookingStatus{BookingStatusPending},
		roles:  []ActorRole{RoleWorker},
		target: BookingStatusAccepted,
	},
	TransitionReject: {
		from:   []BookingStatus{BookingStatusPending},
		roles:  []ActorRole{RoleWorker},
		target: BookingStatusRejected,
	},
	TransitionWithdraw: {
		from:   []BookingStatus{BookingStatusPending},
		roles:  []ActorRole{RoleClient},
		target: BookingStatusCancelled,
	},
	TransitionCancel: {
		from:   []BookingStatus{BookingStatusPending, BookingStatusAccepted},
		roles:  []ActorRole{RoleClient, RoleWorker, RoleAdmin},
		target: BookingStatusCancelled,
	},
	TransitionStart: {
		from:   []BookingStatus{BookingStatusAccepted},
		roles:  []ActorRole{RoleWorker},
		target: BookingStatusInProgress,
	},
	TransitionComplete: {
		from:   []BookingStatus{BookingStatusInProgress},
		roles:  []ActorRole{RoleWorker},
		target: BookingStatusCompleted,
	},
	TransitionAdminCancel: {
		from:   []BookingStatus{BookingStatusPending, BookingStatusAccepted, BookingStatusInProgress},
		roles:  []ActorRole{RoleAdmin},
		target: BookingStatusCancelled,
	},
}

func (t Transition) IsValid() bool {
	_, ok := transitionRules[t]
	return ok
}

// Target возвращает целевой статус перехода.
func (t Transition) Target() BookingStatus {
	return transitionRules[t].target
}

// AllowedFrom проверяет, разрешён ли переход из текущего статуса.
func (t Transition) AllowedFrom(status BookingStatus) bool {
	for _, s := range transitionRules[t].from {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedFor проверяет, разрешён ли переход для роли актора.
func (t Transition) AllowedFor(role ActorRole) bool {
	for _, r := range transitionRules[t].roles {
		if r == role {
			return true
		}
	}
	return false
}

// AllowedFromStatuses возвращает исходные статусы перехода (для деталей ошибки).
func (t Transition) AllowedFromStatuses() []string {
	rule := transitionRules[t]
	out := make([]string, 0, len(rule.from))
	for _, s := range rule.from {
		out = append(out, string(s))
	}
	return out
}

// IsCancellation сообщает, что переход фиксирует отмену и требует
// атомарной записи cancelled_by / cancellation_reason / cancelled_at.
func (t Transition) IsCancellation() bool {
	return transitionRules[t].target == BookingStatusCancelled
}
