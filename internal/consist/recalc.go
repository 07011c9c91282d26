package consist

// ConsistChanged recomputes the cached per-unit and consist-wide values of
// the chain headed by head. It must run after any unit joins or leaves the
// chain, including for engineless wagon chains.
func ConsistChanged(head *Vehicle, engines *EngineTable) {
	headInfo := engines.Info(head.Engine)
	firstEngine := InvalidEngine
	if head.IsFrontEngine() {
		firstEngine = head.Engine
	}

	var power uint32
	maxSpeed := uint16(0xFFFF)

	for u := head; u != nil; u = u.next {
		info := engines.Info(u.Engine)

		if u == head {
			u.FirstEngine = InvalidEngine
		} else {
			u.FirstEngine = firstEngine
		}

		power += uint32(info.Power)

		u.ClearFlag(FlagPoweredWagon)
		if headInfo.PowWagPower != 0 && info.IsWagon() && info.WagonOverride {
			effect := uint16(info.VisualEffect)
			if info.PowerCallback != nil {
				if r, ok := info.PowerCallback(u); ok {
					effect = r
				}
			}
			if effect < 0x40 {
				u.SetFlag(FlagPoweredWagon)
				power += uint32(headInfo.PowWagPower)
			}
		}

		if info.MaxSpeed != 0 && info.MaxSpeed < maxSpeed {
			maxSpeed = info.MaxSpeed
		}

		shorten := uint16(info.ShortenFactor)
		if info.LengthCallback != nil {
			if r, ok := info.LengthCallback(u); ok {
				shorten = r
			}
		}
		u.CachedVehLength = 8 - uint8(min(shorten, 7))
	}

	head.CachedMaxSpeed = maxSpeed
	head.CachedPower = power

	// weights depend on the powered-wagon flags set above
	CargoChanged(head, engines)
}

// CargoChanged recomputes unit and consist weights. Run it whenever cargo
// is loaded, unloaded or refitted.
func CargoChanged(head *Vehicle, engines *EngineTable) {
	headInfo := engines.Info(head.Engine)
	var weight uint32
	for u := head; u != nil; u = u.next {
		info := engines.Info(u.Engine)
		vw := info.Weight + u.CargoType.Weight()*u.CargoCount/16
		if u.Has(FlagPoweredWagon) {
			vw += headInfo.PowWagWeight
		}
		u.CachedVehWeight = vw
		weight += uint32(vw)
	}
	head.CachedWeight = weight
}

// UpdateAcceleration derives the speed cap and the simple acceleration
// rate of a head from its cached power and weight.
func UpdateAcceleration(head *Vehicle) {
	head.MaxSpeed = head.CachedMaxSpeed
	weight := head.CachedWeight
	if weight == 0 {
		weight = 1
	}
	head.Acceleration = uint8(min(max(head.CachedPower/weight*4, 1), 255))
}

// Length returns the consist length in eighths of a tile.
func Length(head *Vehicle) int {
	n := 0
	for u := head; u != nil; u = u.next {
		n += int(u.CachedVehLength)
	}
	return n
}

// Passengers counts the passengers on board the chain.
func Passengers(head *Vehicle) int {
	n := 0
	for u := head; u != nil; u = u.next {
		if u.CargoType == CargoPassengers {
			n += int(u.CargoCount)
		}
	}
	return n
}
