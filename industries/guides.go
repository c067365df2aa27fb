package industries

type guide struct {
	issue string
	steps []string
}

var appliances = []string{"fridge", "stove", "heater", "water_pump", "power_system"}

// guides are the troubleshooting steps per appliance. The first issue of
// each appliance is the fallback when the description matches none.
var guides = map[string][]guide{
	"fridge": {
		{"not_cooling", []string{
			"Check that the fridge is turned on and set to the correct mode (gas, 12V, or 240V).",
			"Ensure the campervan is parked on a level surface.",
			"Check that the gas bottle is turned on and has gas (if using gas mode).",
			"Verify that the 12V connection is working (if using 12V mode).",
			"Check that the campervan is connected to mains power (if using 240V mode).",
			"Allow 24 hours for the fridge to reach optimal temperature after turning on.",
			"Avoid overfilling the fridge as this can restrict air circulation.",
		}},
		{"making_noise", []string{
			"Some noise is normal during operation, especially when the cooling cycle starts.",
			"Check that the fridge is level, uneven positioning can cause increased noise.",
			"Ensure nothing is touching the cooling unit at the back of the fridge.",
			"Check that the fridge is not set to maximum cooling unnecessarily.",
		}},
		{"freezing_food", []string{
			"Adjust the temperature control to a lower setting.",
			"Ensure food is not placed against the cooling plate at the back of the fridge.",
			"Check that the door seals properly and is not being left open.",
		}},
	},
	"stove": {
		{"won't_light", []string{
			"Ensure the gas bottle is turned on and has gas.",
			"Check that the gas isolation valve for the stove is open.",
			"For piezo ignition: press and hold the knob while clicking the ignition several times.",
			"For manual lighting: use a lighter or match while pressing and holding the knob.",
			"Hold the knob in for 10-15 seconds after lighting to allow the thermocouple to heat up.",
			"Check for blockages in the burner and clean if necessary.",
		}},
		{"weak_flame", []string{
			"Check that the gas bottle is not running low.",
			"Ensure the burner is clean and free from food debris.",
			"Check that the correct jet is installed for the type of gas being used.",
			"Verify that the gas regulator is functioning correctly.",
		}},
		{"gas_smell", []string{
			"Turn off the gas bottle immediately.",
			"Open all windows and doors to ventilate the campervan.",
			"Do not use any electrical switches or naked flames.",
			"Check that all knobs are in the off position.",
			"Contact support for assistance and do not use the stove until it has been checked.",
		}},
	},
	"heater": {
		{"not_turning_on", []string{
			"Check that the campervan has sufficient battery power.",
			"Ensure the gas bottle is turned on and has gas (for gas heaters).",
			"Verify that the heater isolation switch is turned on.",
			"Check the control panel settings and increase the temperature setting.",
			"Reset the heater by turning it off at the control panel, waiting 10 seconds, then turning it back on.",
		}},
		{"blowing_cold_air", []string{
			"Allow the heater a few minutes to warm up after starting.",
			"Check that the gas bottle is not empty (for gas heaters).",
			"Ensure the air intake and outlets are not blocked.",
			"Check that the correct temperature is set on the control panel.",
		}},
		{"making_unusual_noise", []string{
			"Some noise is normal during startup and shutdown cycles.",
			"Check that the air intake is not blocked or restricted.",
			"Ensure the campervan is parked on a level surface.",
			"If a high-pitched whine persists, the fan may need servicing. Contact support.",
		}},
	},
	"water_pump": {
		{"not_working", []string{
			"Check that the water tank has sufficient water.",
			"Ensure the pump switch is turned on.",
			"Verify that the campervan has sufficient battery power.",
			"Check for any tripped circuit breakers or blown fuses.",
			"Listen for the pump running when a tap is opened. If it runs but no water flows, there may be an airlock.",
		}},
		{"running_continuously", []string{
			"Check for any open taps or leaks in the water system.",
			"Ensure the water tank is not empty.",
			"Check for air in the system. Run each tap until water flows smoothly.",
			"The pressure switch may need adjustment. Contact support if the issue persists.",
		}},
		{"pulsing_or_cycling", []string{
			"This is often caused by a small leak or dripping tap.",
			"Check all taps are fully closed.",
			"Inspect visible water lines for leaks.",
			"The accumulator tank may need recharging. Contact support if the issue persists.",
		}},
	},
	"power_system": {
		{"no_12v_power", []string{
			"Check the main battery isolation switch is turned on.",
			"Verify that the leisure battery has sufficient charge.",
			"Check for any tripped circuit breakers or blown fuses in the 12V system.",
			"If connected to mains power, ensure the battery charger is working.",
			"Check that the battery terminals are clean and securely connected.",
		}},
		{"no_240v_power", []string{
			"Verify that the campervan is properly connected to a mains power supply.",
			"Check that the site's power outlet is working.",
			"Inspect the RCD (residual current device) and reset if tripped.",
			"Check for any tripped circuit breakers in the campervan's consumer unit.",
			"Ensure the mains connection cable is not damaged.",
		}},
		{"battery_not_charging", []string{
			"When driving: check the alternator fuse and connections.",
			"When on mains power: verify that the battery charger is working.",
			"With solar panels: ensure panels are clean and positioned for maximum sunlight.",
			"Check that the battery terminals are clean and securely connected.",
			"The battery may be at the end of its life if it is more than 3-5 years old.",
		}},
	},
}
