package vesting_test

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"testing"

	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/peer"
	"github.com/stretchr/testify/require"

	"github.com/Kidkender/token-vesting-contract/vesting"
	"github.com/Kidkender/token-vesting-contract/vesting/mocks"
)

const (
	admin        = "0b87970433b22494faff1cc7a819e71bddc7880c"
	beneficiary1 = "11aa22bb33cc44dd55ee66ff77aa88bb99cc00dd"
	beneficiary2 = "ffee0011223344556677889900aabbccddeeff00"
	outsider     = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

	tokenAddress = "token-erc20"

	secondsPerMonth = 2_629_776
	graceMonths     = 3

	startTime = int64(1_700_000_000)

	scheduleKey     = "vesting_schedule"
	tokenAddressKey = "token_address"
)

// testEnv wires a fake transaction context to an in-memory world state and a
// simulated token chaincode, the way the contract would see them on a peer.
type testEnv struct {
	ctx      *mocks.TransactionContext
	stub     *mocks.ChaincodeStub
	contract *vesting.SmartContract

	world    map[string][]byte
	balances map[string]uint64
	events   map[string][]byte
}

func newTestEnv() *testEnv {
	env := &testEnv{
		ctx:      &mocks.TransactionContext{},
		stub:     &mocks.ChaincodeStub{},
		contract: &vesting.SmartContract{},
		world:    map[string][]byte{},
		balances: map[string]uint64{},
		events:   map[string][]byte{},
	}

	env.stub.GetStateStub = func(key string) ([]byte, error) {
		return env.world[key], nil
	}
	env.stub.PutStateStub = func(key string, value []byte) error {
		env.world[key] = value
		return nil
	}
	env.stub.DelStateStub = func(key string) error {
		delete(env.world, key)
		return nil
	}
	env.stub.SetEventStub = func(name string, payload []byte) error {
		env.events[name] = payload
		return nil
	}
	env.stub.GetChannelIDReturns("vestingchannel")
	env.stub.InvokeChaincodeStub = func(chaincodeName string, args [][]byte, channel string) peer.Response {
		if chaincodeName != tokenAddress {
			return peer.Response{Status: shim.ERROR, Message: fmt.Sprintf("chaincode %s not found", chaincodeName)}
		}
		switch string(args[0]) {
		case "BalanceOf":
			balance := env.balances[string(args[1])]
			return peer.Response{Status: shim.OK, Payload: []byte(strconv.FormatUint(balance, 10))}
		case "Transfer":
			from, to := string(args[1]), string(args[2])
			amount, err := strconv.ParseUint(string(args[3]), 10, 64)
			if err != nil {
				return peer.Response{Status: shim.ERROR, Message: "invalid amount"}
			}
			if env.balances[from] < amount {
				return peer.Response{Status: shim.ERROR, Message: "insufficient balance"}
			}
			env.balances[from] -= amount
			env.balances[to] += amount
			return peer.Response{Status: shim.OK}
		default:
			return peer.Response{Status: shim.ERROR, Message: fmt.Sprintf("unknown function %s", string(args[0]))}
		}
	}

	env.ctx.GetStubReturns(env.stub)

	return env
}

func (env *testEnv) setUser(userID string) {
	completeID := fmt.Sprintf("x509::CN=%s,O=Organization,L=City,ST=State,C=Country", userID)
	b64ID := base64.StdEncoding.EncodeToString([]byte(completeID))

	clientIdentity := &mocks.ClientIdentity{}
	clientIdentity.GetIDReturns(b64ID, nil)
	env.ctx.GetClientIdentityReturns(clientIdentity)
}

func (env *testEnv) setNow(now int64) {
	env.stub.GetTxTimestampReturns(&timestamp.Timestamp{Seconds: now}, nil)
}

func (env *testEnv) schedule(t *testing.T) *vesting.Schedule {
	t.Helper()
	raw, ok := env.world[scheduleKey]
	require.True(t, ok, "schedule not persisted")

	var schedule vesting.Schedule
	require.NoError(t, json.Unmarshal(raw, &schedule))

	return &schedule
}

// initialize funds the admin and commits the given table at startTime.
func (env *testEnv) initialize(t *testing.T, beneficiaries []vesting.BeneficiaryInput, total uint64) {
	t.Helper()
	env.setUser(admin)
	env.setNow(startTime)
	env.balances[admin] = total

	require.NoError(t, env.contract.SetTokenAddress(env.ctx, tokenAddress))
	require.NoError(t, env.contract.Initialize(env.ctx, beneficiaries, total, 9))
}

func escrow() string {
	return vesting.EscrowAddress(tokenAddress)
}

func TestSetTokenAddress(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	env.setUser(admin)

	err := env.contract.SetTokenAddress(env.ctx, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidTokenAddress")

	err = env.contract.SetTokenAddress(env.ctx, "-leading-dash")
	require.Error(t, err)

	require.NoError(t, env.contract.SetTokenAddress(env.ctx, tokenAddress))
	require.Equal(t, []byte(tokenAddress), env.world[tokenAddressKey])
	require.Contains(t, env.events, "TokenAddressSet")

	err = env.contract.SetTokenAddress(env.ctx, "other-token")
	require.ErrorIs(t, err, vesting.ErrTokenAlreadySet)
}

func TestInitialize(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	beneficiaries := []vesting.BeneficiaryInput{
		{Identity: beneficiary1, AllocatedTokens: 5_000_000_000, StartTime: startTime, CliffMonths: 0, TotalMonths: 48},
		{Identity: beneficiary2, AllocatedTokens: 166_667_000, StartTime: startTime, CliffMonths: 24, TotalMonths: 48},
	}
	env.initialize(t, beneficiaries, 5_166_667_000)

	schedule := env.schedule(t)
	require.Equal(t, admin, schedule.Admin)
	require.Equal(t, tokenAddress, schedule.Mint)
	require.Equal(t, uint64(5_166_667_000), schedule.TotalVestingAmount)
	require.Len(t, schedule.Beneficiaries, 2)
	for _, b := range schedule.Beneficiaries {
		require.Zero(t, b.ClaimedTokens)
	}

	// The full allocation moved from the admin's account into escrow.
	require.Zero(t, env.balances[admin])
	require.Equal(t, uint64(5_166_667_000), env.balances[escrow()])
	require.Contains(t, env.events, "VestingInitialized")

	// Second initialize is rejected before touching anything.
	env.balances[admin] = 5_166_667_000
	err := env.contract.Initialize(env.ctx, beneficiaries, 5_166_667_000, 9)
	require.ErrorIs(t, err, vesting.ErrAlreadyInitialized)
	require.Equal(t, uint64(5_166_667_000), env.balances[admin])
}

func TestInitializeRequiresTokenAddress(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	env.setUser(admin)
	env.balances[admin] = 1000

	beneficiaries := []vesting.BeneficiaryInput{
		{Identity: beneficiary1, AllocatedTokens: 1000, StartTime: startTime, TotalMonths: 12},
	}
	err := env.contract.Initialize(env.ctx, beneficiaries, 1000, 9)
	require.ErrorIs(t, err, vesting.ErrTokenNotSet)
}

func TestInitializeValidation(t *testing.T) {
	t.Parallel()

	valid := func() []vesting.BeneficiaryInput {
		return []vesting.BeneficiaryInput{
			{Identity: beneficiary1, AllocatedTokens: 600, StartTime: startTime, CliffMonths: 1, TotalMonths: 12},
			{Identity: beneficiary2, AllocatedTokens: 400, StartTime: startTime, CliffMonths: 0, TotalMonths: 6},
		}
	}

	tests := []struct {
		name          string
		beneficiaries func() []vesting.BeneficiaryInput
		total         uint64
		decimals      uint8
		funding       uint64
	}{
		{
			name:          "no beneficiaries",
			beneficiaries: func() []vesting.BeneficiaryInput { return nil },
			total:         1000,
			decimals:      9,
			funding:       1000,
		},
		{
			name: "too many beneficiaries",
			beneficiaries: func() []vesting.BeneficiaryInput {
				var list []vesting.BeneficiaryInput
				for i := 0; i < 51; i++ {
					list = append(list, vesting.BeneficiaryInput{
						Identity:        fmt.Sprintf("%040x", i+1),
						AllocatedTokens: 1,
						StartTime:       startTime,
						TotalMonths:     12,
					})
				}
				return list
			},
			total:    51,
			decimals: 9,
			funding:  51,
		},
		{
			name: "duplicate beneficiary",
			beneficiaries: func() []vesting.BeneficiaryInput {
				list := valid()
				list[1].Identity = list[0].Identity
				return list
			},
			total:    1000,
			decimals: 9,
			funding:  1000,
		},
		{
			name: "zero allocation",
			beneficiaries: func() []vesting.BeneficiaryInput {
				list := valid()
				list[1].AllocatedTokens = 0
				return list
			},
			total:    600,
			decimals: 9,
			funding:  600,
		},
		{
			name: "zero duration",
			beneficiaries: func() []vesting.BeneficiaryInput {
				list := valid()
				list[0].TotalMonths = 0
				list[0].CliffMonths = 0
				return list
			},
			total:    1000,
			decimals: 9,
			funding:  1000,
		},
		{
			name: "duration beyond the month cap",
			beneficiaries: func() []vesting.BeneficiaryInput {
				list := valid()
				list[0].CliffMonths = 3_600_000_000_000
				list[0].TotalMonths = 3_600_000_000_001
				return list
			},
			total:    1000,
			decimals: 9,
			funding:  1000,
		},
		{
			name: "malformed identity",
			beneficiaries: func() []vesting.BeneficiaryInput {
				list := valid()
				list[0].Identity = "not-an-address"
				return list
			},
			total:    1000,
			decimals: 9,
			funding:  1000,
		},
		{
			name: "cliff equals duration",
			beneficiaries: func() []vesting.BeneficiaryInput {
				list := valid()
				list[0].CliffMonths = list[0].TotalMonths
				return list
			},
			total:    1000,
			decimals: 9,
			funding:  1000,
		},
		{
			name:          "allocations exceed total",
			beneficiaries: valid,
			total:         999,
			decimals:      9,
			funding:       999,
		},
		{
			name:          "allocations below total",
			beneficiaries: valid,
			total:         1001,
			decimals:      9,
			funding:       1001,
		},
		{
			name:          "decimals out of range",
			beneficiaries: valid,
			total:         1000,
			decimals:      10,
			funding:       1000,
		},
		{
			name:          "insufficient funding balance",
			beneficiaries: valid,
			total:         1000,
			decimals:      9,
			funding:       999,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv()
			env.setUser(admin)
			env.setNow(startTime)
			env.balances[admin] = tt.funding
			require.NoError(t, env.contract.SetTokenAddress(env.ctx, tokenAddress))

			err := env.contract.Initialize(env.ctx, tt.beneficiaries(), tt.total, tt.decimals)
			require.ErrorIs(t, err, vesting.ErrInvalidAllocation)

			// Rejection leaves no schedule and moves no funds.
			require.NotContains(t, env.world, scheduleKey)
			require.Equal(t, tt.funding, env.balances[admin])
		})
	}
}

func TestClaimLinearVesting(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	env.initialize(t, []vesting.BeneficiaryInput{
		{Identity: beneficiary1, AllocatedTokens: 5_000_000_000, StartTime: startTime, CliffMonths: 0, TotalMonths: 48},
	}, 5_000_000_000)

	env.setUser(beneficiary1)

	// Exactly 5 months in: floor(5e9 * 5 / 48).
	env.setNow(startTime + 5*secondsPerMonth)
	require.NoError(t, env.contract.Claim(env.ctx))
	require.Equal(t, uint64(520_833_333), env.balances[beneficiary1])

	schedule := env.schedule(t)
	require.Equal(t, uint64(520_833_333), schedule.Beneficiaries[0].ClaimedTokens)
	require.Contains(t, env.events, "TokensClaimed")

	// Claiming again in the same month yields nothing new.
	err := env.contract.Claim(env.ctx)
	require.ErrorIs(t, err, vesting.ErrClaimNotAllowed)
	require.Equal(t, uint64(520_833_333), env.balances[beneficiary1])

	// One month later the cumulative total is floor(5e9 * 6 / 48).
	env.setNow(startTime + 6*secondsPerMonth)
	require.NoError(t, env.contract.Claim(env.ctx))
	require.Equal(t, uint64(625_000_000), env.balances[beneficiary1])

	schedule = env.schedule(t)
	require.Equal(t, uint64(625_000_000), schedule.Beneficiaries[0].ClaimedTokens)
}

func TestClaimWithCliff(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	env.initialize(t, []vesting.BeneficiaryInput{
		{Identity: beneficiary1, AllocatedTokens: 166_667_000, StartTime: startTime, CliffMonths: 24, TotalMonths: 48},
	}, 166_667_000)

	env.setUser(beneficiary1)

	// Anywhere before the cliff nothing is vested, allocation size is
	// irrelevant.
	env.setNow(startTime + 23*secondsPerMonth)
	err := env.contract.Claim(env.ctx)
	require.ErrorIs(t, err, vesting.ErrClaimNotAllowed)

	// One second short of a whole post-cliff month still vests nothing.
	env.setNow(startTime + 25*secondsPerMonth - 1)
	err = env.contract.Claim(env.ctx)
	require.ErrorIs(t, err, vesting.ErrClaimNotAllowed)

	// One month past the cliff: floor(166667000 * 1 / 24).
	env.setNow(startTime + 25*secondsPerMonth)
	require.NoError(t, env.contract.Claim(env.ctx))
	require.Equal(t, uint64(6_944_458), env.balances[beneficiary1])
}

func TestClaimFullWindow(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	env.initialize(t, []vesting.BeneficiaryInput{
		{Identity: beneficiary1, AllocatedTokens: 5_000_000_000, StartTime: startTime, CliffMonths: 0, TotalMonths: 48},
	}, 5_000_000_000)

	env.setUser(beneficiary1)

	// Far past the window the whole allocation is claimable, with no
	// floor-division residue.
	env.setNow(startTime + 1000*secondsPerMonth)
	require.NoError(t, env.contract.Claim(env.ctx))
	require.Equal(t, uint64(5_000_000_000), env.balances[beneficiary1])
	require.Zero(t, env.balances[escrow()])

	err := env.contract.Claim(env.ctx)
	require.ErrorIs(t, err, vesting.ErrClaimNotAllowed)
}

func TestClaimUnknownBeneficiary(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	env.initialize(t, []vesting.BeneficiaryInput{
		{Identity: beneficiary1, AllocatedTokens: 1000, StartTime: startTime, TotalMonths: 12},
	}, 1000)

	env.setUser(outsider)
	env.setNow(startTime + secondsPerMonth)

	timestampCalls := env.stub.GetTxTimestampCallCount()
	err := env.contract.Claim(env.ctx)
	require.ErrorIs(t, err, vesting.ErrBeneficiaryNotFound)

	// The lookup failed before any time arithmetic happened.
	require.Equal(t, timestampCalls, env.stub.GetTxTimestampCallCount())
}

func TestClaimBeforeInitialize(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	env.setUser(beneficiary1)
	env.setNow(startTime)

	err := env.contract.Claim(env.ctx)
	require.ErrorIs(t, err, vesting.ErrBeneficiaryNotFound)
}

func TestEscrowCoversUnclaimedEntitlement(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	env.initialize(t, []vesting.BeneficiaryInput{
		{Identity: beneficiary1, AllocatedTokens: 5_000_000_000, StartTime: startTime, CliffMonths: 0, TotalMonths: 48},
		{Identity: beneficiary2, AllocatedTokens: 166_667_000, StartTime: startTime, CliffMonths: 24, TotalMonths: 48},
	}, 5_166_667_000)

	check := func() {
		schedule := env.schedule(t)
		var unclaimed uint64
		for _, b := range schedule.Beneficiaries {
			require.LessOrEqual(t, b.ClaimedTokens, b.AllocatedTokens)
			unclaimed += b.AllocatedTokens - b.ClaimedTokens
		}
		require.GreaterOrEqual(t, env.balances[escrow()], unclaimed)
	}
	check()

	for _, months := range []int64{5, 6, 25, 30, 48, 52} {
		env.setNow(startTime + months*secondsPerMonth)

		env.setUser(beneficiary1)
		if err := env.contract.Claim(env.ctx); err != nil {
			require.ErrorIs(t, err, vesting.ErrClaimNotAllowed)
		}
		check()

		env.setUser(beneficiary2)
		if err := env.contract.Claim(env.ctx); err != nil {
			require.ErrorIs(t, err, vesting.ErrClaimNotAllowed)
		}
		check()
	}

	// Everything vested by now; escrow fully drained.
	require.Zero(t, env.balances[escrow()])
	require.Equal(t, uint64(5_000_000_000), env.balances[beneficiary1])
	require.Equal(t, uint64(166_667_000), env.balances[beneficiary2])
}

func TestWithdraw(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	// beneficiary1 expires at startTime + (12+3) months, beneficiary2 at
	// startTime + (48+3) months.
	env.initialize(t, []vesting.BeneficiaryInput{
		{Identity: beneficiary1, AllocatedTokens: 1200, StartTime: startTime, CliffMonths: 0, TotalMonths: 12},
		{Identity: beneficiary2, AllocatedTokens: 4800, StartTime: startTime, CliffMonths: 0, TotalMonths: 48},
	}, 6000)

	env.setUser(admin)

	// Before any entry expires there is nothing to reclaim.
	env.setNow(startTime + (12+graceMonths)*secondsPerMonth - 1)
	err := env.contract.Withdraw(env.ctx)
	require.ErrorIs(t, err, vesting.ErrNoUnclaimedTokens)

	// At the expiry boundary beneficiary1's whole untouched allocation is
	// reclaimable; beneficiary2 is still vesting.
	env.setNow(startTime + (12+graceMonths)*secondsPerMonth)
	require.NoError(t, env.contract.Withdraw(env.ctx))
	require.Equal(t, uint64(1200), env.balances[admin])
	require.Contains(t, env.events, "UnclaimedWithdrawn")

	schedule := env.schedule(t)
	b1, err := schedule.FindBeneficiary(beneficiary1)
	require.NoError(t, err)
	require.Equal(t, b1.AllocatedTokens, b1.ClaimedTokens)
	b2, err := schedule.FindBeneficiary(beneficiary2)
	require.NoError(t, err)
	require.Zero(t, b2.ClaimedTokens)

	// Repeat withdraw with no newly expired entries never double-pays.
	err = env.contract.Withdraw(env.ctx)
	require.ErrorIs(t, err, vesting.ErrNoUnclaimedTokens)
	require.Equal(t, uint64(1200), env.balances[admin])

	// The swept beneficiary has nothing left to claim.
	env.setUser(beneficiary1)
	err = env.contract.Claim(env.ctx)
	require.ErrorIs(t, err, vesting.ErrClaimNotAllowed)
}

func TestWithdrawUnauthorized(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	env.initialize(t, []vesting.BeneficiaryInput{
		{Identity: beneficiary1, AllocatedTokens: 1000, StartTime: startTime, TotalMonths: 12},
	}, 1000)

	env.setUser(beneficiary1)
	env.setNow(startTime + 100*secondsPerMonth)

	err := env.contract.Withdraw(env.ctx)
	require.ErrorIs(t, err, vesting.ErrUnauthorizedAdmin)
	require.Zero(t, env.balances[admin])
}

func TestWithdrawSkipsClaimedPortion(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	env.initialize(t, []vesting.BeneficiaryInput{
		{Identity: beneficiary1, AllocatedTokens: 4800, StartTime: startTime, CliffMonths: 0, TotalMonths: 48},
	}, 4800)

	// Beneficiary claims half way through, then forgets the rest.
	env.setUser(beneficiary1)
	env.setNow(startTime + 24*secondsPerMonth)
	require.NoError(t, env.contract.Claim(env.ctx))
	require.Equal(t, uint64(2400), env.balances[beneficiary1])

	// Admin reclaims only the unclaimed remainder after expiry.
	env.setUser(admin)
	env.setNow(startTime + (48+graceMonths)*secondsPerMonth)
	require.NoError(t, env.contract.Withdraw(env.ctx))
	require.Equal(t, uint64(2400), env.balances[admin])
	require.Zero(t, env.balances[escrow()])
}

func TestGetVestingData(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	env.setUser(admin)

	_, err := env.contract.GetVestingData(env.ctx)
	require.Error(t, err)

	env.initialize(t, []vesting.BeneficiaryInput{
		{Identity: beneficiary1, AllocatedTokens: 1000, StartTime: startTime, TotalMonths: 12},
	}, 1000)

	schedule, err := env.contract.GetVestingData(env.ctx)
	require.NoError(t, err)
	require.Equal(t, admin, schedule.Admin)
	require.Len(t, schedule.Beneficiaries, 1)
}

func TestCalculateClaimAmountView(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	env.initialize(t, []vesting.BeneficiaryInput{
		{Identity: beneficiary1, AllocatedTokens: 5_000_000_000, StartTime: startTime, CliffMonths: 0, TotalMonths: 48},
	}, 5_000_000_000)

	// Nothing claimable yet is 0, not an error.
	env.setNow(startTime)
	amount, err := env.contract.CalculateClaimAmount(env.ctx, beneficiary1)
	require.NoError(t, err)
	require.Zero(t, amount)

	env.setNow(startTime + 5*secondsPerMonth)
	amount, err = env.contract.CalculateClaimAmount(env.ctx, beneficiary1)
	require.NoError(t, err)
	require.Equal(t, uint64(520_833_333), amount)

	// The view moves nothing.
	require.Equal(t, uint64(5_000_000_000), env.balances[escrow()])

	_, err = env.contract.CalculateClaimAmount(env.ctx, outsider)
	require.ErrorIs(t, err, vesting.ErrBeneficiaryNotFound)
}

func TestGetWithdrawableAmount(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	env.initialize(t, []vesting.BeneficiaryInput{
		{Identity: beneficiary1, AllocatedTokens: 1200, StartTime: startTime, CliffMonths: 0, TotalMonths: 12},
	}, 1200)

	env.setNow(startTime + (12+graceMonths)*secondsPerMonth - 1)
	amount, err := env.contract.GetWithdrawableAmount(env.ctx)
	require.NoError(t, err)
	require.Zero(t, amount)

	env.setNow(startTime + (12+graceMonths)*secondsPerMonth)
	amount, err = env.contract.GetWithdrawableAmount(env.ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1200), amount)

	// A view never finalizes entries.
	require.Equal(t, uint64(1200), env.balances[escrow()])
	schedule := env.schedule(t)
	require.Zero(t, schedule.Beneficiaries[0].ClaimedTokens)
}
