package contract

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// gameABI is the pinned ABI of the mind vault contract. Earlier
// revisions used submitGuess/VaultSubmitted names and a five-phase room
// enum; those are stale history and intentionally absent here.
const gameABI = `[
	{"inputs":[{"name":"roomId","type":"uint256"}],"name":"getRoom","outputs":[{"name":"creator","type":"address"},{"name":"opponent","type":"address"},{"name":"wager","type":"uint256"},{"name":"phase","type":"uint8"},{"name":"turnCount","type":"uint32"},{"name":"encryptedWinner","type":"bytes32"},{"name":"createdAt","type":"uint64"},{"name":"lastActiveAt","type":"uint64"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"roomId","type":"uint256"},{"name":"turnIndex","type":"uint32"}],"name":"getProbe","outputs":[{"name":"submitter","type":"address"},{"name":"digits","type":"uint8[4]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"digits","type":"uint8[4]"}],"name":"createRoom","outputs":[{"name":"roomId","type":"uint256"}],"stateMutability":"payable","type":"function"},
	{"inputs":[{"name":"roomId","type":"uint256"},{"name":"digits","type":"uint8[4]"}],"name":"joinRoom","outputs":[],"stateMutability":"payable","type":"function"},
	{"inputs":[{"name":"roomId","type":"uint256"},{"name":"digits","type":"uint8[4]"}],"name":"submitProbe","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"roomId","type":"uint256"}],"name":"cancelRoom","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"roomId","type":"uint256"},{"indexed":true,"name":"creator","type":"address"},{"indexed":false,"name":"wager","type":"uint256"}],"name":"RoomCreated","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"roomId","type":"uint256"},{"indexed":false,"name":"opponent","type":"address"}],"name":"RoomJoined","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"roomId","type":"uint256"},{"indexed":true,"name":"who","type":"address"}],"name":"ProbeSubmitted","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"roomId","type":"uint256"},{"indexed":false,"name":"turnIndex","type":"uint32"},{"indexed":false,"name":"submitter","type":"address"},{"indexed":false,"name":"isWin","type":"bool"},{"indexed":false,"name":"breaches","type":"uint8"},{"indexed":false,"name":"signals","type":"uint8"}],"name":"ResultComputed","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"roomId","type":"uint256"},{"indexed":false,"name":"requestId","type":"uint256"}],"name":"DecryptionRequested","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"roomId","type":"uint256"},{"indexed":false,"name":"winner","type":"address"}],"name":"WinnerDecrypted","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"roomId","type":"uint256"},{"indexed":false,"name":"winner","type":"address"},{"indexed":false,"name":"amount","type":"uint256"}],"name":"GameFinished","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"roomId","type":"uint256"},{"indexed":false,"name":"by","type":"address"}],"name":"RoomCancelled","type":"event"}
]`

// GameABI is the parsed contract ABI, shared by the binding and the
// event watcher.
var GameABI = func() abi.ABI {
	a, err := abi.JSON(strings.NewReader(gameABI))
	if err != nil {
		panic("contract: bad embedded ABI: " + err.Error())
	}
	return a
}()
