package webtask

// Assignments is the only link between spiders and orders: each order has
// at most one driving spider and each spider drives at most one order.
type Assignments struct {
	byOrder map[int]int
	byAgent map[int]int
}

func NewAssignments() *Assignments {
	return &Assignments{byOrder: make(map[int]int), byAgent: make(map[int]int)}
}

// Link ties agent to order, dropping any previous link either side held.
func (a *Assignments) Link(order, agent int) {
	a.UnlinkOrder(order)
	a.UnlinkAgent(agent)
	a.byOrder[order] = agent
	a.byAgent[agent] = order
}

func (a *Assignments) UnlinkOrder(order int) {
	if agent, ok := a.byOrder[order]; ok {
		delete(a.byAgent, agent)
		delete(a.byOrder, order)
	}
}

func (a *Assignments) UnlinkAgent(agent int) {
	if order, ok := a.byAgent[agent]; ok {
		delete(a.byOrder, order)
		delete(a.byAgent, agent)
	}
}

func (a *Assignments) OrderOf(agent int) (int, bool) {
	order, ok := a.byAgent[agent]
	return order, ok
}

func (a *Assignments) AgentOf(order int) (int, bool) {
	agent, ok := a.byOrder[order]
	return agent, ok
}

func (a *Assignments) Len() int {
	return len(a.byOrder)
}
