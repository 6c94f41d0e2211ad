package console

const menu = `
+----------------------------------------------------------------------+
|                    M E N U                                           |
+---+------------------------------------------------------------------+
| c | create           Create the instance                             |
| d | destroy          Destroy the instance                            |
| i | init o|a         Initialize ICE session as offerer or answerer   |
| e | stop             End/stop ICE session                            |
| s | show             Display local ICE info                          |
| r | remote           Input remote ICE info                           |
| b | start            Begin ICE negotiation                           |
| x | send <compid> .. Send data to remote                             |
+---+------------------------------------------------------------------+
| h |  help            * Help! *                                       |
| q |  quit            Quit                                            |
+----------------------------------------------------------------------+
`

const help = `
-= Help on using ICE and this icecam program =-

This application demonstrates ICE without a signaling protocol. To use it,
run two instances of this application, to simulate two ICE agents.

Basic ICE flow:
 create instance [menu "c"]
 repeat these steps as wanted:
   - init session as offerer or answerer [menu "i"]
   - display our SDP [menu "s"]
   - "send" our SDP from the "show" output above to remote, by
     copy-pasting the SDP to the other icecam instance
   - parse remote SDP, by pasting SDP generated by the other icecam
     instance [menu "r"]
   - begin ICE negotiation in our end [menu "b"], and
   - immediately begin ICE negotiation in the other icecam instance
   - ICE negotiation will run, and result will be printed to screen
   - send application data to remote [menu "x"]
   - end/stop ICE session [menu "e"]
 destroy instance [menu "d"]

Type "menu" to see the menu again.
`
