package kernel

// tick is the time-slice interrupt. It ages every sleeping thread by one
// tick period, wakes those that reach zero and asks for a switch.
func (k *Kernel) tick() {
	k.stats.ticks++
	step := k.slice
	k.sleeping.Each(func(t *TCB) bool {
		if t.sleep > step {
			t.sleep -= step
			return true
		}
		t.sleep = 0
		k.sleeping.Remove(t)
		t.state = StateReady
		k.sched.Schedule(t)
		return true
	})
	k.m.RequestSwitch()
}

// msTick advances system time.
func (k *Kernel) msTick() {
	k.stats.ms++
}
